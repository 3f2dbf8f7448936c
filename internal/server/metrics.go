package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job metrics exposed on /metrics. Registration happens at package init via
// the default registry, which main serves through promhttp.
var (
	jobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devo_jobs_started_total",
		Help: "Number of optimization jobs accepted.",
	})

	jobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devo_jobs_completed_total",
		Help: "Number of optimization jobs finished, by terminal status.",
	}, []string{"status"})

	generationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devo_generations_total",
		Help: "Total differential evolution generations executed across all jobs.",
	})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "devo_job_duration_seconds",
		Help:    "Wall-clock duration of finished optimization jobs.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	})
)
