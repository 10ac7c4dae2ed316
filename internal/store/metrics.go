package store

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts store activity. A nil *Metrics records nothing.
type Metrics struct {
	reads           *prometheus.CounterVec
	writes          prometheus.Counter
	persistFailures prometheus.Counter
	decodeFailures  prometheus.Counter
	notifications   prometheus.Counter
	signals         *prometheus.CounterVec
}

// NewMetrics creates the store collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "reads_total",
			Help:      "Snapshot reads by result (hit, loaded, default).",
		}, []string{"result"}),
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Values written through Set or Update.",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "persist_failures_total",
			Help:      "Writes that stayed in memory because the backend refused them.",
		}),
		decodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "decode_failures_total",
			Help:      "Durable records or signals that could not be decoded.",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "notifications_total",
			Help:      "Subscriber callbacks invoked.",
		}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "signals_total",
			Help:      "Cross-instance signals received by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.reads, m.writes, m.persistFailures, m.decodeFailures, m.notifications, m.signals)
	}
	return m
}

func (m *Metrics) read(result string) {
	if m != nil {
		m.reads.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) write() {
	if m != nil {
		m.writes.Inc()
	}
}

func (m *Metrics) persistFailure() {
	if m != nil {
		m.persistFailures.Inc()
	}
}

func (m *Metrics) decodeFailure() {
	if m != nil {
		m.decodeFailures.Inc()
	}
}

func (m *Metrics) notified(n int) {
	if m != nil {
		m.notifications.Add(float64(n))
	}
}

func (m *Metrics) signal(outcome string) {
	if m != nil {
		m.signals.WithLabelValues(outcome).Inc()
	}
}
