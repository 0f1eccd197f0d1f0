package queue

import (
	"testing"
	"time"

	"github.com/vconn-io/segcore/internal/segment"
)

func seg(seqNo uint32) *segment.Segment {
	s := segment.New(64)
	s.SeqNo = seqNo
	return s
}

func TestFirstDequeueStartsAtZero(t *testing.T) {
	q := New()
	if q.Dequeue() != nil {
		t.Fatal("Dequeue on empty queue returned non-nil")
	}
	q.Enqueue(seg(0))
	got := q.Dequeue()
	if got == nil || got.SeqNo != 0 {
		t.Fatalf("got %+v, want SeqNo 0", got)
	}
}

func TestOutOfOrderEnqueueDeliversInOrder(t *testing.T) {
	q := New()
	q.Enqueue(seg(2))
	q.Enqueue(seg(0))
	q.Enqueue(seg(1))

	for want := uint32(0); want < 3; want++ {
		got := q.Dequeue()
		if got == nil || got.SeqNo != want {
			t.Fatalf("dequeue %d: got %+v", want, got)
		}
	}
	if q.Dequeue() != nil {
		t.Fatal("expected nil after draining queue")
	}
}

func TestDequeueBlocksUntilPredecessorArrives(t *testing.T) {
	q := New()
	q.Enqueue(seg(2))

	if q.Dequeue() != nil {
		t.Fatal("dequeue must not deliver seq 2 before seq 0 and 1 arrive")
	}

	done := make(chan *segment.Segment, 1)
	go func() {
		for {
			if got := q.Dequeue(); got != nil {
				done <- got
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	select {
	case <-done:
		t.Fatal("dequeue returned before the gap was filled")
	case <-time.After(20 * time.Millisecond):
	}

	q.Enqueue(seg(0))
	q.Enqueue(seg(1))

	select {
	case got := <-done:
		if got.SeqNo != 0 {
			t.Fatalf("got SeqNo %d, want 0", got.SeqNo)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue never unblocked")
	}
}

func TestDuplicateSuppressed(t *testing.T) {
	q := New()
	continuous1 := q.Enqueue(seg(0))
	continuous2 := q.Enqueue(seg(0))

	if !continuous1 {
		t.Fatal("first enqueue of seq 0 should report continuous=true")
	}
	if continuous2 {
		t.Fatal("duplicate enqueue of seq 0 should not report continuous")
	}
	if q.Length() != 1 {
		t.Fatalf("got length %d, want 1 after duplicate drop", q.Length())
	}

	if got := q.Dequeue(); got == nil || got.SeqNo != 0 {
		t.Fatalf("got %+v, want the single seq-0 segment", got)
	}
	if q.Dequeue() != nil {
		t.Fatal("second dequeue must not find a duplicate")
	}
}

func TestDuplicateBelowExpectedDropped(t *testing.T) {
	q := New()
	q.Enqueue(seg(0))
	q.Dequeue()

	if q.Enqueue(seg(0)) {
		t.Fatal("re-enqueue of an already-consumed sequence number must not report continuous")
	}
	if q.Length() != 0 {
		t.Fatalf("got length %d, want 0", q.Length())
	}
}

func TestLengthCountsAllStoredSegments(t *testing.T) {
	q := New()
	q.Enqueue(seg(5))
	q.Enqueue(seg(1))
	if q.Length() != 2 {
		t.Fatalf("got length %d, want 2 (includes non-deliverable segments)", q.Length())
	}
}
