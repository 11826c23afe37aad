package metrics

import "github.com/prometheus/client_golang/prometheus"

// ErrorMetrics groups error tracking metrics
type ErrorMetrics struct {
	PanicsTotal *prometheus.CounterVec
	ErrorsTotal *prometheus.CounterVec

	// Outcome of the last retried call per upstream target
	UpstreamHealthy *prometheus.GaugeVec
}

// NewErrorMetrics creates and returns error tracking metrics
func NewErrorMetrics() *ErrorMetrics {
	return &ErrorMetrics{
		PanicsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "syncwatch_panics_total",
				Help:        "Total number of recovered panics",
				ConstLabels: constLabels(),
			},
			[]string{"component"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "syncwatch_errors_total",
				Help:        "Total number of errors by component and type",
				ConstLabels: constLabels(),
			},
			[]string{"component", "error_type"},
		),
		UpstreamHealthy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "syncwatch_upstream_healthy",
				Help:        "Whether the last retried call to an upstream (listing, ipfs) succeeded (1) or gave up (0)",
				ConstLabels: constLabels(),
			},
			[]string{"target"},
		),
	}
}

// Register registers all error metrics with the given registry
func (e *ErrorMetrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		e.PanicsTotal,
		e.ErrorsTotal,
		e.UpstreamHealthy,
	)
}
