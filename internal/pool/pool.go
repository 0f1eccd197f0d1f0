// Package pool implements the FreeSegmentPool: a bounded, reusable cache
// of *segment.Segment that lets the segment manager recycle buffers
// instead of allocating a fresh one per segment.
package pool

import (
	"github.com/sirupsen/logrus"

	"github.com/vconn-io/segcore/internal/seglist"
	"github.com/vconn-io/segcore/internal/segment"
	"github.com/vconn-io/segcore/internal/tmutex"
)

var log = logrus.WithField("component", "segcore.pool")

// Pool is a bounded cache of idle segments, shared by the send and
// receive paths. New segments are allocated on a miss; segments above
// the threshold are deallocated rather than retained forever.
type Pool struct {
	mu        *tmutex.Mutex
	list      seglist.List
	segSize   int
	threshold int
}

// New creates a Pool that allocates segments of segSize bytes and keeps
// at most threshold of them idle.
func New(segSize, threshold int) *Pool {
	return &Pool{mu: tmutex.New(), segSize: segSize, threshold: threshold}
}

// Pop returns a segment ready for reuse: a recycled one from the pool if
// available, freshly allocated otherwise. Its SeqNo, Len and Flag are
// reset to zero; Buffer contents are whatever the previous owner left
// behind and must be treated as undefined until overwritten.
func (p *Pool) Pop() *segment.Segment {
	p.mu.Lock()
	seg := p.list.PopFront()
	p.mu.Unlock()

	if seg == nil {
		seg = segment.New(p.segSize)
	} else {
		seg.Reset()
	}
	return seg
}

// Push returns seg to the pool for reuse. If the pool now exceeds its
// threshold, it is shrunk back to half the threshold.
func (p *Pool) Push(seg *segment.Segment) {
	p.mu.Lock()
	p.list.PushFront(seg)
	over := p.list.Len() > p.threshold
	p.mu.Unlock()

	if over {
		p.ShrinkIfOverThreshold()
	}
}

// Shrink deallocates segments from the pool until at most target remain.
func (p *Pool) Shrink(target int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.list.Len() > target {
		p.list.PopFront()
	}
}

// ShrinkIfOverThreshold shrinks the pool to half its threshold if it
// currently exceeds the threshold. Exposed separately from Push so
// DeallocateSentSegmentsByPeer can run the same check after bulk-freeing
// sent segments, matching the two call sites in the original.
func (p *Pool) ShrinkIfOverThreshold() {
	p.mu.Lock()
	size := p.list.Len()
	if size <= p.threshold {
		p.mu.Unlock()
		return
	}
	target := p.threshold / 2
	for p.list.Len() > target {
		p.list.PopFront()
	}
	p.mu.Unlock()
	log.Debugf("free pool shrunk from %d to %d (threshold %d)", size, target, p.threshold)
}

// DrainAll deallocates every idle segment in the pool. Called on
// shutdown; the pool remains usable afterward (it will simply allocate
// fresh segments on the next Pop).
func (p *Pool) DrainAll() {
	p.Shrink(0)
}

// Len reports the number of idle segments currently cached.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.list.Len()
}
