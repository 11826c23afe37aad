package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	DeploymentLatencyBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60}
	ScanLatencyBuckets       = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800}
)

// ScanMetrics groups fleet scan metrics
type ScanMetrics struct {
	// Deployment level
	DeploymentsProcessedTotal *prometheus.CounterVec
	DeploymentDuration        prometheus.Histogram
	DeploymentsInFlight       prometheus.Gauge

	// Source level
	SourcesProbedTotal *prometheus.CounterVec

	// Run level
	ScanDuration      prometheus.Histogram
	LastScanTimestamp prometheus.Gauge
	LastScanOmitted   prometheus.Gauge
}

// NewScanMetrics creates and returns scan metrics
func NewScanMetrics() *ScanMetrics {
	return &ScanMetrics{
		DeploymentsProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "syncwatch_deployments_processed_total",
				Help:        "Total number of deployments aggregated",
				ConstLabels: constLabels(),
			},
			[]string{"result"}, // "summarized", "omitted"
		),
		DeploymentDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "syncwatch_deployment_duration_seconds",
				Help:        "Time spent aggregating one deployment",
				Buckets:     DeploymentLatencyBuckets,
				ConstLabels: constLabels(),
			},
		),
		DeploymentsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "syncwatch_deployments_in_flight",
				Help:        "Number of deployments currently being aggregated",
				ConstLabels: constLabels(),
			},
		),
		SourcesProbedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "syncwatch_sources_probed_total",
				Help:        "Total number of source statuses collected",
				ConstLabels: constLabels(),
			},
			[]string{"kind", "outcome"},
		),
		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "syncwatch_scan_duration_seconds",
				Help:        "Wall-clock duration of a full fleet scan",
				Buckets:     ScanLatencyBuckets,
				ConstLabels: constLabels(),
			},
		),
		LastScanTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "syncwatch_last_scan_timestamp_seconds",
				Help:        "Unix time the last fleet scan finished",
				ConstLabels: constLabels(),
			},
		),
		LastScanOmitted: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "syncwatch_last_scan_omitted_deployments",
				Help:        "Deployments omitted from the last fleet report",
				ConstLabels: constLabels(),
			},
		),
	}
}

// Register registers all scan metrics with the given registry
func (s *ScanMetrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		s.DeploymentsProcessedTotal,
		s.DeploymentDuration,
		s.DeploymentsInFlight,
		s.SourcesProbedTotal,
		s.ScanDuration,
		s.LastScanTimestamp,
		s.LastScanOmitted,
	)
}
