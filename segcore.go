// Package segcore is the public entry point to the segmentation and
// reassembly core of a multipath communication stack: it chops outbound
// byte streams into fixed-size segments, routes them through
// priority-scheduled send queues under atomically-assigned sequence
// numbers, reassembles inbound segments arriving out of order across
// arbitrary transports, and tracks in-flight segments so peer
// acknowledgements can reclaim them and gaps can be retransmitted.
//
// The heavy lifting lives in internal/manager and its sibling packages;
// this file is the seam the rest of the stack (transport adapters, the
// upper Protocol Manager, the transport-switching policy) is meant to
// depend on instead of reaching into internal/.
package segcore

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vconn-io/segcore/internal/config"
	"github.com/vconn-io/segcore/internal/errs"
	"github.com/vconn-io/segcore/internal/manager"
	"github.com/vconn-io/segcore/internal/protocol"
	"github.com/vconn-io/segcore/internal/segment"
	"github.com/vconn-io/segcore/internal/seqalloc"
	"github.com/vconn-io/segcore/internal/stats"
)

// Re-exported so callers never need to import internal/ packages
// directly.
type (
	// Config carries the segment manager's tunables (segment size,
	// header size, free pool threshold).
	Config = config.Config
	// Segment is a single fixed-capacity transmission unit.
	Segment = segment.Segment
	// HeaderParser is the upstream protocol collaborator consulted on
	// the first fragment of every reassembled message.
	HeaderParser = protocol.HeaderParser
	// HeaderParserFunc adapts a function to HeaderParser.
	HeaderParserFunc = protocol.HeaderParserFunc
	// Class names a sequence class: ClassControl or ClassData.
	Class = seqalloc.Class
)

// The two sequence classes.
const (
	ClassControl = seqalloc.ClassControl
	ClassData    = seqalloc.ClassData
)

// Sentinel errors the core returns; see internal/errs for the taxonomy.
var (
	ErrInvalidArgument     = errs.ErrInvalidArgument
	ErrEmptyQueueAfterWake = errs.ErrEmptyQueueAfterWake
	ErrAllocationFailure   = errs.ErrAllocationFailure
	ErrRetransmitShortfall = errs.ErrRetransmitShortfall
	ErrUnknownClass        = errs.ErrUnknownClass
	ErrClosed              = errs.ErrClosed
)

// DefaultConfig returns the module's default parameters: a 1024-byte
// segment, a 20-byte header, a 256-segment free pool cap.
func DefaultConfig() config.Config {
	return config.DefaultConfig()
}

// Manager is the segment manager facade: Send, Recv, PopFailedSegment,
// AddSentSegment, DeallocateSentSegmentsByPeer,
// RetransmitMissingSegmentsByPeer and Shutdown.
type Manager struct {
	m *manager.Manager
}

// New constructs a Manager bound to cfg and parseHeader. If reg is
// non-nil, Stats counters (send requests, queue lengths, reassembly
// completions) are registered against it; pass nil to skip metrics
// entirely.
func New(cfg config.Config, parseHeader HeaderParser, reg *prometheus.Registry) *Manager {
	var st *stats.Stats
	if reg != nil {
		st = stats.New(reg)
	}
	return &Manager{m: manager.New(cfg, parseHeader, st)}
}

// Send fragments data into SegPayloadSize()-sized segments, reserves a
// contiguous sequence range, and enqueues them on the control or data
// send queue. It returns once every fragment is enqueued; transport
// delivery happens asynchronously and its failures are reported back
// via the failed-segment list, not from here.
func (mgr *Manager) Send(data []byte, isControl bool) error {
	return mgr.m.Send(data, isControl)
}

// Recv blocks until a full message is available on the requested class
// and returns its reassembled payload. A (nil, nil) result means the
// upstream protocol parser reported a zero-length message.
func (mgr *Manager) Recv(isControl bool) ([]byte, error) {
	return mgr.m.Recv(isControl)
}

// AddSentSegment records seg as transmitted-but-unacknowledged so a
// later cumulative ACK or retransmit request can find it.
func (mgr *Manager) AddSentSegment(class Class, seg *Segment) error {
	return mgr.m.AddSentSegment(class, seg)
}

// DeallocateSentSegmentsByPeer reclaims sent segments a peer's
// cumulative ACK now covers. A nil pointer for either class means "no
// update" for that class.
func (mgr *Manager) DeallocateSentSegmentsByPeer(lastSeqNoControl, lastSeqNoData *uint32) {
	mgr.m.DeallocateSentSegmentsByPeer(lastSeqNoControl, lastSeqNoData)
}

// RetransmitMissingSegmentsByPeer moves sent segments in [start, end] on
// the given class into the failed list for re-enqueue.
func (mgr *Manager) RetransmitMissingSegmentsByPeer(class Class, start, end uint32) error {
	return mgr.m.RetransmitMissingSegmentsByPeer(class, start, end)
}

// PopFailedSegment removes and returns the oldest segment awaiting
// re-transmission, or nil if none are pending.
func (mgr *Manager) PopFailedSegment() *Segment {
	return mgr.m.PopFailedSegment()
}

// RequestRetransmitMissingSegments is a reserved hook; see
// internal/manager for why it is intentionally left unimplemented.
func (mgr *Manager) RequestRetransmitMissingSegments() {
	mgr.m.RequestRetransmitMissingSegments()
}

// ReceivingDone reports whether both receive queues were empty as of
// the last enqueue, for an external disconnection sequencer to poll.
func (mgr *Manager) ReceivingDone() bool {
	return mgr.m.ReceivingDone()
}

// Shutdown marks the manager closed, wakes every blocked Recv/consumer,
// and drains the free pool.
func (mgr *Manager) Shutdown() {
	mgr.m.Shutdown()
}
