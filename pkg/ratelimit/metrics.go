package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records limiter admission outcomes.
type Metrics interface {
	RecordAllowed(scope, path string)
	RecordDenied(scope, path string)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) RecordAllowed(string, string) {}
func (NopMetrics) RecordDenied(string, string)  {}

// PrometheusMetrics exports limiter counters on the default registry.
// Construct it once per process; duplicate registration panics.
type PrometheusMetrics struct {
	allowed *prometheus.CounterVec
	denied  *prometheus.CounterVec
}

// NewPrometheusMetrics registers and returns the limiter counters.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		allowed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "coordinator_ratelimit_allowed_total",
			Help: "Requests admitted by the rate limiter.",
		}, []string{"scope", "path"}),
		denied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "coordinator_ratelimit_denied_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"scope", "path"}),
	}
}

func (m *PrometheusMetrics) RecordAllowed(scope, path string) {
	m.allowed.WithLabelValues(scope, path).Inc()
}

func (m *PrometheusMetrics) RecordDenied(scope, path string) {
	m.denied.WithLabelValues(scope, path).Inc()
}
