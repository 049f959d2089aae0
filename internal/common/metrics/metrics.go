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

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_pipeline_runs_total",
			Help: "Loan pipeline runs by outcome (ok, invalid_input, failed)",
		},
		[]string{"outcome"},
	)

	Decisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_decisions_total",
			Help: "Eligibility decisions by bucket",
		},
		[]string{"decision"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loan_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	GenerationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_generation_fallbacks_total",
			Help: "Times a generated text was replaced by its fixed fallback",
		},
		[]string{"stage"},
	)

	AuditFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_audit_failures_total",
			Help: "Audit appends that failed, by sink",
		},
		[]string{"sink"},
	)

	RiskCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_risk_cache_lookups_total",
			Help: "Risk probability cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)
