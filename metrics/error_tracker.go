package metrics

// TrackPanic counts a panic recovered inside a worker of component.
func TrackPanic(component string) {
	GetMetrics().Error.PanicsTotal.WithLabelValues(component).Inc()
}

// TrackError counts a handled error; errorType is a types.ErrorType.
func TrackError(component, errorType string) {
	GetMetrics().Error.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// SetUpstreamHealth records the final outcome of a retried upstream call.
func SetUpstreamHealth(target string, healthy bool) {
	var v float64
	if healthy {
		v = 1
	}
	GetMetrics().Error.UpstreamHealthy.WithLabelValues(target).Set(v)
}
