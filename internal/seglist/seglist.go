// Package seglist is an intrusive doubly linked list specialized to
// *segment.Segment. Every container the segment manager keeps segments in —
// the free pool, a send/receive queue, a sent list, the failed list —
// is built on top of this: O(1) push/remove, no per-entry allocation,
// and an ascending-by-sequence-number insert for the containers that
// need one.
package seglist

import "github.com/vconn-io/segcore/internal/segment"

// List is an intrusive list of segments. The zero value is an empty list
// ready to use.
type List struct {
	head *segment.Segment
	tail *segment.Segment
	size int
}

// Len returns the number of segments currently in the list.
func (l *List) Len() int { return l.size }

// Empty reports whether the list holds no segments.
func (l *List) Empty() bool { return l.head == nil }

// Front returns the first segment, or nil if the list is empty.
func (l *List) Front() *segment.Segment { return l.head }

// Back returns the last segment, or nil if the list is empty.
func (l *List) Back() *segment.Segment { return l.tail }

// PushFront inserts seg at the head of the list.
func (l *List) PushFront(seg *segment.Segment) {
	seg.SetPrev(nil)
	seg.SetNext(l.head)
	if l.head != nil {
		l.head.SetPrev(seg)
	} else {
		l.tail = seg
	}
	l.head = seg
	l.size++
}

// PushBack inserts seg at the tail of the list.
func (l *List) PushBack(seg *segment.Segment) {
	seg.SetNext(nil)
	seg.SetPrev(l.tail)
	if l.tail != nil {
		l.tail.SetNext(seg)
	} else {
		l.head = seg
	}
	l.tail = seg
	l.size++
}

// Remove detaches seg from the list. seg must currently be an element of
// l; behavior is undefined otherwise.
func (l *List) Remove(seg *segment.Segment) {
	if prev := seg.Prev(); prev != nil {
		prev.SetNext(seg.Next())
	} else {
		l.head = seg.Next()
	}
	if next := seg.Next(); next != nil {
		next.SetPrev(seg.Prev())
	} else {
		l.tail = seg.Prev()
	}
	seg.SetNext(nil)
	seg.SetPrev(nil)
	l.size--
}

// PopFront removes and returns the first segment, or nil if empty.
func (l *List) PopFront() *segment.Segment {
	seg := l.head
	if seg != nil {
		l.Remove(seg)
	}
	return seg
}

// InsertAscendingFromTail inserts seg keeping the list in strict
// ascending order of seqNo(seg), scanning backward from the tail — the
// original's add_sent_segment_to_list walks this direction because
// arrivals are usually already close to sorted. Returns false without
// modifying the list if a segment with the same sequence number is
// already present (duplicate-drop).
func (l *List) InsertAscendingFromTail(seg *segment.Segment, seqNo func(*segment.Segment) uint32) bool {
	target := seqNo(seg)
	if l.tail == nil {
		l.PushBack(seg)
		return true
	}
	for cur := l.tail; cur != nil; cur = cur.Prev() {
		cs := seqNo(cur)
		switch {
		case cs < target:
			l.insertAfter(cur, seg)
			return true
		case cs == target:
			return false
		}
	}
	l.PushFront(seg)
	return true
}

func (l *List) insertAfter(at, seg *segment.Segment) {
	next := at.Next()
	seg.SetPrev(at)
	seg.SetNext(next)
	at.SetNext(seg)
	if next != nil {
		next.SetPrev(seg)
	} else {
		l.tail = seg
	}
	l.size++
}

// Each calls fn for every segment from front to back. fn must not mutate
// the list.
func (l *List) Each(fn func(*segment.Segment)) {
	for cur := l.head; cur != nil; cur = cur.Next() {
		fn(cur)
	}
}
