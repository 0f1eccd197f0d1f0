// Package sentlist implements the per-class SentSegmentList: an ordered
// record of transmitted-but-unacknowledged segments, from which entries
// are removed either by a peer's cumulative ACK or by a retransmit
// request that moves them to the failed list.
package sentlist

import (
	"github.com/vconn-io/segcore/internal/seglist"
	"github.com/vconn-io/segcore/internal/segment"
	"github.com/vconn-io/segcore/internal/tmutex"
)

// List holds one sequence class's unacknowledged sent segments, ordered
// strictly ascending by SeqNo.
type List struct {
	mu   *tmutex.Mutex
	list seglist.List
}

// New returns an empty sent list.
func New() *List {
	return &List{mu: tmutex.New()}
}

func seqNoOf(s *segment.Segment) uint32 { return s.SeqNo }

// Add inserts seg in ascending SeqNo order, scanning from the tail
// backward since sent segments usually arrive close to already sorted.
// A segment with a SeqNo already present is dropped; Add reports
// whether seg was actually inserted.
func (l *List) Add(seg *segment.Segment) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list.InsertAscendingFromTail(seg, seqNoOf)
}

// SweepUpTo removes and returns, in ascending order, every segment with
// SeqNo <= maxSeqNo. Used to reclaim segments a peer's cumulative ACK
// has covered.
func (l *List) SweepUpTo(maxSeqNo uint32) []*segment.Segment {
	l.mu.Lock()
	defer l.mu.Unlock()

	var reclaimed []*segment.Segment
	for cur := l.list.Front(); cur != nil; {
		next := cur.Next()
		if cur.SeqNo > maxSeqNo {
			break
		}
		l.list.Remove(cur)
		reclaimed = append(reclaimed, cur)
		cur = next
	}
	return reclaimed
}

// Retransmit removes and returns every segment with start <= SeqNo <=
// end. The caller is responsible for moving the returned segments into
// the failed list; Retransmit only evicts them from the sent list.
func (l *List) Retransmit(start, end uint32) []*segment.Segment {
	l.mu.Lock()
	defer l.mu.Unlock()

	var moved []*segment.Segment
	for cur := l.list.Front(); cur != nil; {
		next := cur.Next()
		if cur.SeqNo >= start && cur.SeqNo <= end {
			l.list.Remove(cur)
			moved = append(moved, cur)
		}
		cur = next
	}
	return moved
}

// Len reports the number of unacknowledged segments currently held.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list.Len()
}
