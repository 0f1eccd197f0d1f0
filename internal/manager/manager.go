// Package manager implements the SegmentManager facade: the public
// send/receive API, the enqueue/dequeue coordination with
// priority-scheduled condition-variable waits, and the reassembly loop.
// Unlike a process-wide singleton, every caller constructs and owns its
// own explicit Manager handle (see DESIGN.md).
package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vconn-io/segcore/internal/config"
	"github.com/vconn-io/segcore/internal/errs"
	"github.com/vconn-io/segcore/internal/faillist"
	"github.com/vconn-io/segcore/internal/pool"
	"github.com/vconn-io/segcore/internal/protocol"
	"github.com/vconn-io/segcore/internal/queue"
	"github.com/vconn-io/segcore/internal/segment"
	"github.com/vconn-io/segcore/internal/sentlist"
	"github.com/vconn-io/segcore/internal/seqalloc"
	"github.com/vconn-io/segcore/internal/stats"
)

var log = logrus.WithField("component", "segcore.manager")

// QueueKind names one of the four logical segment queues.
type QueueKind int

const (
	SendControl QueueKind = iota
	SendData
	RecvControl
	RecvData
	numQueues
)

func (qk QueueKind) label() stats.QueueLabel {
	switch qk {
	case SendControl:
		return stats.QueueSendControl
	case SendData:
		return stats.QueueSendData
	case RecvControl:
		return stats.QueueRecvControl
	default:
		return stats.QueueRecvData
	}
}

// DequeueClass names one of the three independently-locked consumer
// views: the combined send side (control preempts data) and the two
// receive sides, which are consumed independently of one another.
type DequeueClass int

const (
	DeqSendControlOrData DequeueClass = iota
	DeqRecvControl
	DeqRecvData
	numDequeueClasses
)

// dequeueClassFor implements the original's queue_type_to_dequeue_type
// table: both send queues share one dequeue class, the two receive
// queues each get their own.
func dequeueClassFor(qk QueueKind) (DequeueClass, error) {
	switch qk {
	case SendControl, SendData:
		return DeqSendControlOrData, nil
	case RecvControl:
		return DeqRecvControl, nil
	case RecvData:
		return DeqRecvData, nil
	default:
		return 0, errs.ErrUnknownClass
	}
}

// Manager is the segment manager facade. Create one with New per
// logical connection; it owns no goroutines of its own, only state
// guarded by its internal locks, so it is safe to drive from as many
// producer/consumer goroutines as the caller wants to run.
type Manager struct {
	cfg         config.Config
	parseHeader protocol.HeaderParser
	stats       *stats.Stats

	seq    *seqalloc.Allocator
	pool   *pool.Pool
	failed *faillist.List

	queues [numQueues]*queue.Queue
	sent   [2]*sentlist.List // indexed by seqalloc.Class

	dequeueMu   [numDequeueClasses]sync.Mutex
	dequeueCond [numDequeueClasses]*sync.Cond

	closed   atomic.Bool
	recvDone atomic.Bool
}

// New constructs a Manager. parseHeader is the upstream protocol
// collaborator consulted on the first fragment of every reassembled
// message; st may be nil if the caller doesn't want metrics.
func New(cfg config.Config, parseHeader protocol.HeaderParser, st *stats.Stats) *Manager {
	m := &Manager{
		cfg:         cfg,
		parseHeader: parseHeader,
		stats:       st,
		seq:         seqalloc.New(),
		pool:        pool.New(cfg.SegSize, cfg.SegFreeThreshold),
		failed:      faillist.New(),
	}
	for i := range m.queues {
		m.queues[i] = queue.New()
	}
	for i := range m.sent {
		m.sent[i] = sentlist.New()
	}
	for i := range m.dequeueCond {
		m.dequeueCond[i] = sync.NewCond(&m.dequeueMu[i])
	}
	return m
}

// Send chops data into fixed-size fragments, reserves a contiguous
// sequence range for them in one atomic step, stamps every fragment
// with the same enqueue timestamp, and places them on the class-
// appropriate send queue. It returns once all fragments are enqueued;
// actual transmission and its failure modes are reported back later via
// AddSentSegment / the failed list, not from here.
func (m *Manager) Send(data []byte, isControl bool) error {
	if len(data) == 0 {
		return errs.ErrInvalidArgument
	}

	payloadSize := m.cfg.SegPayloadSize()
	n := (len(data) + payloadSize - 1) / payloadSize

	class := seqalloc.ClassData
	qk := SendData
	if isControl {
		class = seqalloc.ClassControl
		qk = SendControl
	}

	base := m.seq.Reserve(class, uint32(n))

	now := time.Now()
	tsSec := int32(now.Unix())
	tsUsec := int32(now.Nanosecond() / 1000)

	offset := 0
	for i := 0; i < n; i++ {
		fragLen := payloadSize
		if remaining := len(data) - offset; remaining < payloadSize {
			fragLen = remaining
		}

		seg := m.pool.Pop()
		seg.SeqNo = base + uint32(i)
		seg.Len = uint32(fragLen)

		var flag uint32
		if i < n-1 {
			flag |= segment.FlagMF
		}
		if isControl {
			flag |= segment.FlagControl
		}
		seg.Flag = flag
		seg.SendStartTsSec = tsSec
		seg.SendStartTsUsec = tsUsec
		seg.SerializeHeader()

		copy(seg.Buffer[segment.HeaderSize:segment.HeaderSize+fragLen], data[offset:offset+fragLen])
		offset += fragLen

		m.enqueue(qk, seg)
	}
	return nil
}

// Recv blocks until a full message is available on the given class's
// receive side and returns its reassembled payload. Only the first
// fragment of a message carries the upstream protocol header; parseHeader
// is consulted once, on that fragment, to learn the protocol header
// length and the total reassembled length. A zero total length (an
// empty/control message at the upper layer) short-circuits to (nil, nil)
// without allocating a reassembly buffer or waiting for further
// fragments.
func (m *Manager) Recv(isControl bool) ([]byte, error) {
	dc := DeqRecvData
	if isControl {
		dc = DeqRecvControl
	}

	seg := m.dequeueBlocking(dc)
	if seg == nil {
		return nil, errs.ErrClosed
	}

	headerLen, totalLen := m.parseHeader.ParseHeader(seg.Buffer[segment.HeaderSize : segment.HeaderSize+int(seg.Len)])
	if totalLen == 0 {
		m.pool.Push(seg)
		return nil, nil
	}

	out := make([]byte, totalLen)
	dataSize := int(seg.Len) - headerLen
	copy(out[:dataSize], seg.Buffer[segment.HeaderSize+headerLen:segment.HeaderSize+headerLen+dataSize])
	offset := dataSize
	cont := seg.Flag&segment.FlagMF != 0
	m.pool.Push(seg)

	for cont {
		seg = m.dequeueBlocking(dc)
		if seg == nil {
			return nil, errs.ErrClosed
		}
		dataSize = int(seg.Len)
		copy(out[offset:offset+dataSize], seg.Buffer[segment.HeaderSize:segment.HeaderSize+dataSize])
		offset += dataSize
		cont = seg.Flag&segment.FlagMF != 0
		m.pool.Push(seg)
	}

	m.stats.IncReassemblyCompletion()
	return out, nil
}

// enqueue is the end of the sending logic and the entry point of the
// receiving logic: it places seg onto queue qk in sequence order, wakes
// any consumer blocked on the matching dequeue class if the insertion
// made a new segment deliverable, and updates send-request/queue-length
// stats.
func (m *Manager) enqueue(qk QueueKind, seg *segment.Segment) {
	dc, err := dequeueClassFor(qk)
	if err != nil {
		log.Errorf("enqueue: unknown queue kind %d", qk)
		return
	}

	mu := &m.dequeueMu[dc]
	mu.Lock()
	continuous := m.queues[qk].Enqueue(seg)
	if continuous {
		m.dequeueCond[dc].Signal()
	}
	if qk == SendControl || qk == SendData {
		m.stats.AddSendRequest(int(seg.Len))
	}
	m.stats.SetQueueLength(qk.label(), m.queues[qk].Length())
	mu.Unlock()

	m.checkReceivingDone()
}

// dequeue blocks until something is deliverable for dequeue class dc (or
// the manager is shut down), then dequeues from the highest-priority
// queue that has it. A nil return with the manager still open means a
// spurious wakeup or a race with another consumer on the same class; the
// caller should retry.
func (m *Manager) dequeue(dc DequeueClass) *segment.Segment {
	mu := &m.dequeueMu[dc]
	mu.Lock()
	defer mu.Unlock()

	for m.nothingDeliverable(dc) && !m.closed.Load() {
		m.dequeueCond[dc].Wait()
	}
	if m.closed.Load() && m.nothingDeliverable(dc) {
		return nil
	}

	qk, ok := m.targetQueueFor(dc)
	if !ok {
		return nil
	}

	seg := m.queues[qk].Dequeue()
	m.stats.SetQueueLength(qk.label(), m.queues[qk].Length())
	if seg == nil {
		log.Debugf("dequeue interrupted: empty queue (queue=%d dequeue=%d)", qk, dc)
	}
	return seg
}

// dequeueBlocking retries dequeue until it yields a real segment or the
// manager is shut down, matching the original recv_from_segment_manager
// and runOutputLoop-style busy-retry around a call that itself blocks.
func (m *Manager) dequeueBlocking(dc DequeueClass) *segment.Segment {
	for {
		if seg := m.dequeue(dc); seg != nil {
			return seg
		}
		if m.closed.Load() {
			return nil
		}
	}
}

func (m *Manager) nothingDeliverable(dc DequeueClass) bool {
	switch dc {
	case DeqSendControlOrData:
		return m.queues[SendControl].Length() == 0 && m.queues[SendData].Length() == 0
	case DeqRecvControl:
		return m.queues[RecvControl].Length() == 0
	case DeqRecvData:
		return m.queues[RecvData].Length() == 0
	default:
		return true
	}
}

// targetQueueFor picks which queue a consumer of dequeue class dc should
// pull from next. Control strictly preempts data on the send side; no
// aging is applied.
func (m *Manager) targetQueueFor(dc DequeueClass) (QueueKind, bool) {
	switch dc {
	case DeqSendControlOrData:
		if m.queues[SendControl].Length() != 0 {
			return SendControl, true
		}
		if m.queues[SendData].Length() != 0 {
			return SendData, true
		}
		return 0, false
	case DeqRecvControl:
		return RecvControl, true
	case DeqRecvData:
		return RecvData, true
	default:
		log.Errorf("invalid dequeue class %d", dc)
		return 0, false
	}
}

// AddSentSegment records seg as transmitted-but-unacknowledged on the
// given sequence class, so a later peer ACK or retransmit request can
// find it.
func (m *Manager) AddSentSegment(class seqalloc.Class, seg *segment.Segment) error {
	if !class.Valid() {
		return errs.ErrUnknownClass
	}
	m.sent[class].Add(seg)
	return nil
}

// DeallocateSentSegmentsByPeer reclaims every sent segment a peer's
// cumulative ACK now covers: everything with SeqNo <= *lastSeqNoControl
// on the control class, and everything with SeqNo <= *lastSeqNoData on
// the data class. A nil pointer for either class means "no update for
// this class" — an explicit optional in place of a seq_no >= 0 check
// against an unsigned value, which is always true and never actually
// models "no update".
func (m *Manager) DeallocateSentSegmentsByPeer(lastSeqNoControl, lastSeqNoData *uint32) {
	if lastSeqNoControl != nil {
		for _, seg := range m.sent[seqalloc.ClassControl].SweepUpTo(*lastSeqNoControl) {
			m.pool.Push(seg)
		}
	}
	if lastSeqNoData != nil {
		for _, seg := range m.sent[seqalloc.ClassData].SweepUpTo(*lastSeqNoData) {
			m.pool.Push(seg)
		}
	}
	m.pool.ShrinkIfOverThreshold()
}

// RetransmitMissingSegmentsByPeer moves every sent segment in
// [start, end] on the given class into the failed list, for a consumer
// to later re-enqueue onto the appropriate send queue. It returns
// ErrRetransmitShortfall (after still moving whatever it could find) if
// fewer segments were moved than the peer's range implies; some of the
// requested segments are no longer held, typically because they were
// already ACKed.
func (m *Manager) RetransmitMissingSegmentsByPeer(class seqalloc.Class, start, end uint32) error {
	if !class.Valid() {
		return errs.ErrUnknownClass
	}
	if end < start {
		return errs.ErrInvalidArgument
	}

	moved := m.sent[class].Retransmit(start, end)
	for _, seg := range moved {
		m.failed.Push(seg)
	}

	requested := int(end-start) + 1
	if len(moved) != requested {
		log.Warnf("retransmit shortfall: moved %d of %d requested segments (class=%s seq=%d..%d)",
			len(moved), requested, class, start, end)
		return errs.ErrRetransmitShortfall
	}
	log.Debugf("retransmit: moved %d segments (class=%s seq=%d..%d)", len(moved), class, start, end)
	return nil
}

// PopFailedSegment removes and returns the oldest segment awaiting
// re-transmission, or nil if none are pending.
func (m *Manager) PopFailedSegment() *segment.Segment {
	return m.failed.Pop()
}

// RequestRetransmitMissingSegments is a reserved hook for a future
// proactive retransmit-request path (gap detection on the receive side
// driving a request to the peer). It is intentionally not implemented;
// callers should not assume any behavior beyond "does nothing".
func (m *Manager) RequestRetransmitMissingSegments() {}

// checkReceivingDone recomputes the completion predicate external
// disconnection logic can poll via ReceivingDone. It is advisory only
// and never gates Send, Recv or Shutdown.
func (m *Manager) checkReceivingDone() {
	done := m.queues[RecvControl].Length() == 0 && m.queues[RecvData].Length() == 0
	m.recvDone.Store(done)
}

// ReceivingDone reports whether both receive queues were empty as of the
// last enqueue; dequeues do not recompute it. An external disconnection sequencer (out of this
// core's scope) uses this as a pre-condition before tearing the
// connection down.
func (m *Manager) ReceivingDone() bool {
	return m.recvDone.Load()
}

// Shutdown marks the manager closed, wakes every blocked dequeue so
// callers parked in Recv/Send-side consumers can observe ErrClosed
// rather than hang forever, and drains the free pool.
func (m *Manager) Shutdown() {
	m.closed.Store(true)
	for i := range m.dequeueCond {
		m.dequeueMu[i].Lock()
		m.dequeueCond[i].Broadcast()
		m.dequeueMu[i].Unlock()
	}
	m.pool.DrainAll()
}
