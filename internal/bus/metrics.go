package bus

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	publishedTotal *prometheus.CounterVec
	droppedTotal   *prometheus.CounterVec
	failuresTotal  *prometheus.CounterVec
}

// WithMetrics registers the bus counters on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(b *Bus) {
		m := &metrics{
			publishedTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "orders_bus_published_total",
					Help: "Total number of messages delivered to at least one subscriber",
				},
				[]string{"topic"},
			),
			droppedTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "orders_bus_dropped_total",
					Help: "Total number of messages dropped for lack of subscribers",
				},
				[]string{"topic"},
			),
			failuresTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "orders_bus_handler_failures_total",
					Help: "Total number of handler invocations that returned an error or panicked",
				},
				[]string{"topic"},
			),
		}
		reg.MustRegister(m.publishedTotal, m.droppedTotal, m.failuresTotal)
		b.metrics = m
	}
}

// The methods below are nil-safe so a Bus built without WithMetrics skips counting.

func (m *metrics) published(topic string) {
	if m != nil {
		m.publishedTotal.WithLabelValues(topic).Inc()
	}
}

func (m *metrics) dropped(topic string) {
	if m != nil {
		m.droppedTotal.WithLabelValues(topic).Inc()
	}
}

func (m *metrics) failed(topic string) {
	if m != nil {
		m.failuresTotal.WithLabelValues(topic).Inc()
	}
}
