// Package queue implements the per-class SegmentQueue: it accepts
// segments in arbitrary order and exposes them to a consumer strictly in
// ascending sequence-number order with no gaps, holding back any segment
// whose predecessor hasn't arrived yet.
package queue

import (
	"github.com/vconn-io/segcore/internal/seglist"
	"github.com/vconn-io/segcore/internal/segment"
	"github.com/vconn-io/segcore/internal/tmutex"
)

// Queue orders segments by SeqNo and releases them to Dequeue one at a
// time, starting from sequence number 0.
type Queue struct {
	mu       *tmutex.Mutex
	list     seglist.List
	expected uint32
}

// New returns an empty Queue whose first deliverable segment must carry
// SeqNo == 0.
func New() *Queue {
	return &Queue{mu: tmutex.New()}
}

func seqNoOf(s *segment.Segment) uint32 { return s.SeqNo }

// Enqueue inserts seg in ascending SeqNo order. A segment whose SeqNo
// duplicates one already queued, or which is below the next expected
// sequence number (already delivered), is dropped. It reports true iff, as a result
// of this insertion, the head of the queue now carries the next expected
// sequence number — i.e. at least one segment became deliverable. That
// boolean is what should drive a dequeue-side condition-variable signal.
func (q *Queue) Enqueue(seg *segment.Segment) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if seg.SeqNo < q.expected {
		return false
	}
	if !q.list.InsertAscendingFromTail(seg, seqNoOf) {
		return false
	}
	return q.list.Front().SeqNo == q.expected
}

// Dequeue removes and returns the head segment if its SeqNo equals the
// queue's expected sequence number, advancing expected by one. Otherwise
// it returns nil without modifying the queue.
func (q *Queue) Dequeue() *segment.Segment {
	q.mu.Lock()
	defer q.mu.Unlock()

	head := q.list.Front()
	if head == nil || head.SeqNo != q.expected {
		return nil
	}
	q.list.Remove(head)
	q.expected++
	return head
}

// Length reports the number of segments currently stored, deliverable or
// not.
func (q *Queue) Length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.list.Len()
}
