// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_completed_total",
			Help: "Total number of completed pipeline runs by intent",
		},
		[]string{"intent"},
	)

	PipelineRunsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_failed_total",
			Help: "Total number of failed pipeline runs",
		},
		[]string{"stage", "error_code"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_stage_duration_seconds",
			Help: "Duration of pipeline stage processing in seconds",
		},
		[]string{"stage"},
	)

	ToolInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_tool_invocations_total",
			Help: "Total number of analytics tool invocations",
		},
		[]string{"tool"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversation_sessions_active",
			Help: "Number of live conversation sessions in the store",
		},
	)

	FeedbackRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_recorded_total",
			Help: "Total number of recorded feedback reports by type",
		},
		[]string{"feedback_type"},
	)
)
