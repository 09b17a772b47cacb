package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whisperasr_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "whisperasr_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whisperasr_tasks_total",
			Help: "Transcription tasks by terminal status",
		},
		[]string{"status"},
	)

	ActiveTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "whisperasr_active_tasks",
			Help: "Number of transcription tasks currently running",
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whisperasr_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		},
		[]string{"stage"},
	)

	ProviderFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whisperasr_provider_fallbacks_total",
			Help: "Diarization or translation failures absorbed by a fallback",
		},
		[]string{"provider"},
	)
)
