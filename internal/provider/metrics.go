package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mathgrade",
		Subsystem: "provider",
		Name:      "request_duration_seconds",
		Help:      "Duration of external provider requests",
	}, []string{"provider", "capability"})

	requestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mathgrade",
		Subsystem: "provider",
		Name:      "request_failures_total",
		Help:      "Number of failed external provider requests",
	}, []string{"provider", "capability"})

	fallbackDepth = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mathgrade",
		Subsystem: "provider",
		Name:      "fallback_attempts",
		Help:      "Providers attempted per analyze call before success or exhaustion",
		Buckets:   []float64{1, 2, 3, 4},
	}, []string{"outcome"})
)
