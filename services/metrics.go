package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	pointsAwardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glowup_points_awarded_total",
			Help: "Total points awarded, by source",
		},
		[]string{"source"},
	)
	completionAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glowup_completion_attempts_total",
			Help: "Mission claims, task completions and activity logs by outcome",
		},
		[]string{"kind", "outcome"},
	)
	levelUpsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "glowup_level_ups_total",
			Help: "Total number of level transitions",
		},
	)
	pushDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glowup_push_dispatch_total",
			Help: "Push notification jobs by result",
		},
		[]string{"result"},
	)
	liveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "glowup_live_connections",
			Help: "Open live event websocket connections",
		},
	)
)

// RegisterMetrics registers the service metrics. Call this once from main.go.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		pointsAwardedTotal,
		completionAttemptsTotal,
		levelUpsTotal,
		pushDispatchTotal,
		liveConnections,
	)
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case isAlreadyCompleted(err):
		return "already_completed"
	case isNotEligible(err):
		return "not_eligible"
	case isInvalidInput(err):
		return "invalid_input"
	}
	return "error"
}
