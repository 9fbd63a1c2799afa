package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	gradingRequestsTotal    *prometheus.CounterVec
	gradingLatencySeconds   *prometheus.HistogramVec
	gradingQuestionsTotal   *prometheus.CounterVec
	gradingReviewsTotal     prometheus.Counter
	gradingCostDollarsTotal *prometheus.CounterVec
	httpRequestsTotal       *prometheus.CounterVec
	httpLatencySeconds      *prometheus.HistogramVec
	httpErrorsTotal         *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used for grading observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		gradingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_requests_total",
			Help: "Total number of grading runs, by outcome.",
		}, []string{"outcome"})

		gradingLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_latency_seconds",
			Help:    "Latency distribution for grading pipeline stages.",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		}, []string{"stage"})

		gradingQuestionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_questions_total",
			Help: "Questions graded, by correctness.",
		}, []string{"correct"})

		gradingReviewsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grading_reviews_total",
			Help: "Grading runs flagged for human review.",
		})

		gradingCostDollarsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_cost_dollars_total",
			Help: "Estimated upstream spend in USD, by stage.",
		}, []string{"stage"})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 15.0, 60.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(
			gradingRequestsTotal,
			gradingLatencySeconds,
			gradingQuestionsTotal,
			gradingReviewsTotal,
			gradingCostDollarsTotal,
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
		)
	})
}

// GradingRequests exposes the counter for grading runs.
func GradingRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingRequestsTotal
}

// GradingLatency exposes the per-stage latency histogram.
func GradingLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return gradingLatencySeconds
}

// GradingQuestions exposes the per-question correctness counter.
func GradingQuestions() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingQuestionsTotal
}

// GradingReviews exposes the needs-review counter.
func GradingReviews() prometheus.Counter {
	RegisterMetrics()
	return gradingReviewsTotal
}

// GradingCost exposes the estimated spend counter.
func GradingCost() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingCostDollarsTotal
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}
