// Package faillist implements the single FailedSegmentList: a FIFO of
// segments scheduled for re-transmission, shared across both sequence
// classes.
package faillist

import (
	"github.com/vconn-io/segcore/internal/seglist"
	"github.com/vconn-io/segcore/internal/segment"
	"github.com/vconn-io/segcore/internal/tmutex"
)

// List is the FIFO staging area segments pass through between being
// evicted from a sent list and being re-enqueued onto a send queue.
type List struct {
	mu   *tmutex.Mutex
	list seglist.List
}

// New returns an empty failed list.
func New() *List {
	return &List{mu: tmutex.New()}
}

// Push appends seg to the tail of the FIFO. Transport-level send
// failures reach the core purely through this call, which cannot itself
// fail.
func (l *List) Push(seg *segment.Segment) {
	l.mu.Lock()
	l.list.PushBack(seg)
	l.mu.Unlock()
}

// Pop removes and returns the oldest segment, or nil if the list is
// empty.
func (l *List) Pop() *segment.Segment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list.PopFront()
}

// Len reports the number of segments awaiting re-enqueue.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list.Len()
}
