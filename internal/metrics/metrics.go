// Package metrics exposes Prometheus instrumentation for the engagement engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EngagementEventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_events_recorded_total",
			Help: "Total number of engagement events recorded",
		},
		[]string{"event_type"},
	)

	EngagementPointsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_points_awarded_total",
			Help: "Total points frozen into recorded engagement events",
		},
		[]string{"event_type"},
	)

	WatchMilestonesReached = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watch_milestones_reached_total",
			Help: "Total number of watch milestones detected",
		},
		[]string{"milestone"},
	)

	WatchSessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watch_sessions_started_total",
			Help: "Total number of watch sessions created",
		},
	)

	LeadScoreCalculations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_score_calculations_total",
			Help: "Total number of lead score calculations",
		},
		[]string{"result"}, // "ok", "error"
	)

	LeadScoreCalculationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lead_score_calculation_duration_seconds",
			Help:    "Duration of a single registration's lead score calculation",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecalcJobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_score_recalc_jobs_enqueued_total",
			Help: "Recalculation jobs handed to the queue",
		},
		[]string{"result"}, // "ok", "dropped"
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route template",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watch_websocket_connections",
			Help: "Current number of viewer WebSocket connections",
		},
	)
)
