package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	httpErrorsTotal        *prometheus.CounterVec
	scoreUpdatesTotal      *prometheus.CounterVec
	scoreConflictsTotal    prometheus.Counter
	submissionsScoredTotal *prometheus.CounterVec
	regradeSeconds         prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors for the scoring API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoring_http_requests_total",
			Help: "Total number of scoring API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scoring_http_latency_seconds",
			Help:    "Latency distribution for scoring API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoring_http_errors_total",
			Help: "Total number of error responses returned by the scoring API.",
		}, []string{"method", "route", "status"})

		scoreUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoring_score_updates_total",
			Help: "Manual and upload score updates applied to instance questions.",
		}, []string{"source", "outcome"})

		scoreConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scoring_modified_at_conflicts_total",
			Help: "Score updates rejected because the instance question changed concurrently.",
		})

		submissionsScoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoring_submissions_scored_total",
			Help: "Graded submissions run through the scoring policies.",
		}, []string{"assessment_type"})

		regradeSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scoring_regrade_duration_seconds",
			Help:    "Time spent replaying one instance question's grading history.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0},
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			scoreUpdatesTotal,
			scoreConflictsTotal,
			submissionsScoredTotal,
			regradeSeconds,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ScoreUpdates exposes the score update counter.
func ScoreUpdates() *prometheus.CounterVec {
	RegisterMetrics()
	return scoreUpdatesTotal
}

// ScoreConflicts exposes the optimistic-concurrency conflict counter.
func ScoreConflicts() prometheus.Counter {
	RegisterMetrics()
	return scoreConflictsTotal
}

// SubmissionsScored exposes the scored submission counter.
func SubmissionsScored() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsScoredTotal
}

// RegradeDuration exposes the per-question regrade duration histogram.
func RegradeDuration() prometheus.Histogram {
	RegisterMetrics()
	return regradeSeconds
}
