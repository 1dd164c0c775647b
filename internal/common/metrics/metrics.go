// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	ScoresComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readiness_scores_computed_total",
			Help: "Total number of readiness scores computed",
		},
		[]string{"level"},
	)

	OverallScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "readiness_overall_score",
			Help:    "Distribution of overall readiness scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	StepsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigation_steps_completed_total",
			Help: "Total number of navigation steps marked complete",
		},
		[]string{"step"},
	)

	NavigationGated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigation_gated_total",
			Help: "Total number of route visits refused by gating",
		},
		[]string{"route"},
	)

	StateDecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_decode_failures_total",
			Help: "Total number of persisted values that failed to decode and fell back to defaults",
		},
		[]string{"key"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "route"},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_created_total",
			Help: "Total number of sessions created",
		},
	)
)
