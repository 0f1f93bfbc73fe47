package resilient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeRejected = "rejected"
)

// Metrics tracks oracle call outcomes and breaker state.
type Metrics struct {
	Calls        *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
	CircuitOpen  prometheus.Gauge
}

// NewMetrics registers the oracle metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Calls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixel_oracle_calls_total",
			Help: "Revocation oracle calls by operation and outcome",
		}, []string{"op", "outcome"}),
		CallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pixel_oracle_call_duration_seconds",
			Help:    "Duration of revocation oracle calls including retries",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		CircuitOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "pixel_oracle_circuit_open",
			Help: "1 while the revocation oracle circuit breaker is open",
		}),
	}
}

func (m *Metrics) observe(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(op, outcome).Inc()
	if outcome != outcomeRejected {
		m.CallDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) setOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitOpen.Set(1)
		return
	}
	m.CircuitOpen.Set(0)
}
