package manager

import (
	"testing"
	"time"

	"github.com/vconn-io/segcore/internal/config"
	"github.com/vconn-io/segcore/internal/protocol"
	"github.com/vconn-io/segcore/internal/segment"
	"github.com/vconn-io/segcore/internal/seqalloc"
)

// zeroHeaderParser treats the entire first-fragment payload as message
// body with no upstream protocol header.
var zeroHeaderParser = protocol.HeaderParserFunc(func(payload []byte) (int, int) {
	return 0, len(payload)
})

func testConfig(segPayloadSize int) config.Config {
	return config.Config{
		SegSize:          segment.HeaderSize + segPayloadSize,
		SegHeaderSize:    segment.HeaderSize,
		SegFreeThreshold: 64,
	}
}

// deliverSent stands in for a transport: it moves every segment waiting
// on the send queues onto the receive queue of its class.
func deliverSent(m *Manager) {
	for m.queues[SendControl].Length()+m.queues[SendData].Length() > 0 {
		seg := m.dequeue(DeqSendControlOrData)
		if seg == nil {
			continue
		}
		if seg.Flag&segment.FlagControl != 0 {
			m.enqueue(RecvControl, seg)
		} else {
			m.enqueue(RecvData, seg)
		}
	}
}

func TestSingleSegmentDataRoundTrip(t *testing.T) {
	m := New(testConfig(4), zeroHeaderParser, nil)
	if err := m.Send([]byte("abcd"), false); err != nil {
		t.Fatalf("Send: %v", err)
	}
	deliverSent(m)

	got, err := m.Recv(false)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(got) != "abcd" {
		t.Fatalf("got %q, want %q", got, "abcd")
	}
}

func TestFragmentedDataRoundTrip(t *testing.T) {
	const msg = "abcdefghij" // 10 bytes -> segments of 4,4,2
	// The upstream header reports the whole message length, not just the
	// first fragment's.
	wholeMsg := protocol.HeaderParserFunc(func(payload []byte) (int, int) { return 0, len(msg) })
	m := New(testConfig(4), wholeMsg, nil)

	if err := m.Send([]byte(msg), false); err != nil {
		t.Fatalf("Send: %v", err)
	}
	deliverSent(m)
	got, err := m.Recv(false)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(got) != msg {
		t.Fatalf("got %q, want %q", got, msg)
	}
}

func TestFragmentFlagsAndSequenceNumbers(t *testing.T) {
	m := New(testConfig(4), zeroHeaderParser, nil)
	if err := m.Send([]byte("abcdefghij"), false); err != nil {
		t.Fatalf("Send: %v", err)
	}

	wantLen := []uint32{4, 4, 2}
	wantFlag := []uint32{segment.FlagMF, segment.FlagMF, 0}
	for i := 0; i < 3; i++ {
		seg := m.dequeue(DeqSendControlOrData)
		if seg == nil {
			t.Fatalf("dequeue %d returned nil", i)
		}
		if seg.SeqNo != uint32(i) {
			t.Fatalf("segment %d: got SeqNo %d, want %d", i, seg.SeqNo, i)
		}
		if seg.Len != wantLen[i] {
			t.Fatalf("segment %d: got Len %d, want %d", i, seg.Len, wantLen[i])
		}
		if seg.Flag != wantFlag[i] {
			t.Fatalf("segment %d: got Flag %d, want %d", i, seg.Flag, wantFlag[i])
		}
	}
}

func TestEmptyMessageShortCircuits(t *testing.T) {
	zeroLen := protocol.HeaderParserFunc(func(payload []byte) (int, int) { return 0, 0 })
	m := New(testConfig(4), zeroLen, nil)
	if err := m.Send([]byte("x"), false); err != nil {
		t.Fatalf("Send: %v", err)
	}
	deliverSent(m)
	got, err := m.Recv(false)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if got != nil {
		t.Fatalf("got %v, want nil for a zero-length upper-layer message", got)
	}
}

func TestControlPrecedesDataOnDequeue(t *testing.T) {
	m := New(testConfig(4), zeroHeaderParser, nil)
	if err := m.Send([]byte("data"), false); err != nil {
		t.Fatalf("Send(data): %v", err)
	}
	if err := m.Send([]byte("ctrl"), true); err != nil {
		t.Fatalf("Send(control): %v", err)
	}

	seg := m.dequeue(DeqSendControlOrData)
	if seg == nil {
		t.Fatal("dequeue returned nil")
	}
	if seg.Flag&segment.FlagControl == 0 {
		t.Fatal("control segment should be dequeued first even though data was enqueued earlier")
	}
}

func TestSendIsFIFOWithinAClass(t *testing.T) {
	m := New(testConfig(4), zeroHeaderParser, nil)
	m.Send([]byte("aaaa"), false)
	m.Send([]byte("bbbb"), false)

	first := m.dequeue(DeqSendControlOrData)
	second := m.dequeue(DeqSendControlOrData)
	if first.SeqNo != 0 || second.SeqNo != 1 {
		t.Fatalf("got sequence %d then %d, want 0 then 1", first.SeqNo, second.SeqNo)
	}
}

func TestRecvBlocksUntilSend(t *testing.T) {
	m := New(testConfig(4), zeroHeaderParser, nil)
	done := make(chan []byte, 1)
	go func() {
		got, err := m.Recv(false)
		if err != nil {
			t.Errorf("Recv: %v", err)
			return
		}
		done <- got
	}()

	select {
	case <-done:
		t.Fatal("Recv returned before any Send")
	case <-time.After(20 * time.Millisecond):
	}

	m.Send([]byte("late"), false)
	deliverSent(m)

	select {
	case got := <-done:
		if string(got) != "late" {
			t.Fatalf("got %q, want %q", got, "late")
		}
	case <-time.After(time.Second):
		t.Fatal("Recv never unblocked after Send")
	}
}

func TestCumulativeAckReclaimsSentSegments(t *testing.T) {
	m := New(testConfig(4), zeroHeaderParser, nil)
	segs := make([]*segment.Segment, 5)
	for i := range segs {
		segs[i] = segment.New(m.cfg.SegSize)
		segs[i].SeqNo = uint32(i)
		if err := m.AddSentSegment(seqalloc.ClassData, segs[i]); err != nil {
			t.Fatalf("AddSentSegment: %v", err)
		}
	}

	poolBefore := m.pool.Len()
	last := uint32(2)
	m.DeallocateSentSegmentsByPeer(nil, &last)

	if got := m.sent[seqalloc.ClassData].Len(); got != 2 {
		t.Fatalf("got %d remaining sent segments, want 2 ({3,4})", got)
	}
	if m.pool.Len() != poolBefore+3 {
		t.Fatalf("got pool size %d, want %d (3 segments reclaimed)", m.pool.Len(), poolBefore+3)
	}
}

func TestRetransmitShortfallReported(t *testing.T) {
	m := New(testConfig(4), zeroHeaderParser, nil)
	s0 := segment.New(m.cfg.SegSize)
	s0.SeqNo = 0
	m.AddSentSegment(seqalloc.ClassData, s0)

	err := m.RetransmitMissingSegmentsByPeer(seqalloc.ClassData, 0, 3)
	if err == nil {
		t.Fatal("expected a shortfall error when only 1 of 4 requested segments is held")
	}
	if got := m.failed.Len(); got != 1 {
		t.Fatalf("got %d segments moved to failed list, want 1", got)
	}
}

func TestUnknownClassRejected(t *testing.T) {
	m := New(testConfig(4), zeroHeaderParser, nil)
	s := segment.New(m.cfg.SegSize)
	if err := m.AddSentSegment(seqalloc.Class(99), s); err == nil {
		t.Fatal("expected an error for an out-of-range sequence class")
	}
}

func TestShutdownUnblocksRecv(t *testing.T) {
	m := New(testConfig(4), zeroHeaderParser, nil)
	done := make(chan error, 1)
	go func() {
		_, err := m.Recv(false)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	m.Shutdown()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error once the manager is shut down")
		}
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not unblock a pending Recv")
	}
}
