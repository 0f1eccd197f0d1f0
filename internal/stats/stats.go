// Package stats implements the Stats counters component from the
// segment manager's component table: monotonic counters for send
// requests and reassembly completions, plus gauges for the four queue
// lengths. Every counter is registered against a caller-supplied
// registry rather than the prometheus global default, so more than one
// Manager can exist in the same process (as every test in this module
// does) without collectors colliding.
package stats

import "github.com/prometheus/client_golang/prometheus"

// QueueLabel names one of the four logical queues for the QueueLength
// gauge vector.
type QueueLabel string

const (
	QueueSendControl QueueLabel = "send_control"
	QueueSendData    QueueLabel = "send_data"
	QueueRecvControl QueueLabel = "recv_control"
	QueueRecvData    QueueLabel = "recv_data"
)

// Stats is the set of counters and gauges the segment manager updates
// as it runs.
type Stats struct {
	// SendRequests counts payload bytes accepted by Enqueue onto a send
	// queue, mirroring the original's mSendRequest counter.
	SendRequests prometheus.Counter
	// ReassemblyCompletions counts messages Recv has fully reassembled
	// and returned to its caller.
	ReassemblyCompletions prometheus.Counter
	// QueueLength reports the current depth of each of the four
	// logical queues.
	QueueLength *prometheus.GaugeVec
}

// New creates a Stats instance and registers its collectors against reg.
// Passing a fresh *prometheus.Registry per Manager (rather than
// prometheus.DefaultRegisterer) keeps independent managers - e.g. in
// tests - from panicking on duplicate registration.
func New(reg *prometheus.Registry) *Stats {
	s := &Stats{
		SendRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "segcore",
			Name:      "send_requests_total",
			Help:      "Payload bytes enqueued onto a send queue.",
		}),
		ReassemblyCompletions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "segcore",
			Name:      "reassembly_completions_total",
			Help:      "Messages fully reassembled and delivered to the caller.",
		}),
		QueueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "segcore",
			Name:      "queue_length",
			Help:      "Current depth of each logical segment queue.",
		}, []string{"queue"}),
	}
	reg.MustRegister(s.SendRequests, s.ReassemblyCompletions, s.QueueLength)
	return s
}

// SetQueueLength records the current depth of the named queue.
func (s *Stats) SetQueueLength(label QueueLabel, n int) {
	if s == nil {
		return
	}
	s.QueueLength.WithLabelValues(string(label)).Set(float64(n))
}

// AddSendRequest records payload bytes accepted onto a send queue.
func (s *Stats) AddSendRequest(n int) {
	if s == nil {
		return
	}
	s.SendRequests.Add(float64(n))
}

// IncReassemblyCompletion records one fully reassembled message.
func (s *Stats) IncReassemblyCompletion() {
	if s == nil {
		return
	}
	s.ReassemblyCompletions.Inc()
}
