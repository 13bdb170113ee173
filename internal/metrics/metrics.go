package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session Registry Metrics
var (
	// LoginAttemptsTotal tracks login attempts by result
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Total login attempts by result (success/invalid_credentials/account_inactive/no_seats/error)",
		},
		[]string{"result"},
	)

	// SessionsActive tracks the current number of active sessions
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Current number of active sessions",
		},
	)

	// SeatsInUse tracks seats currently held per organization
	SeatsInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seats_in_use",
			Help: "Seats currently held by active standard-user sessions, per organization",
		},
		[]string{"organization"},
	)

	// SessionsEndedTotal tracks terminal session transitions by cause
	SessionsEndedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_ended_total",
			Help: "Total sessions ended by cause (logout/expired)",
		},
		[]string{"cause"},
	)

	// SessionsSweptTotal tracks sessions reclaimed by the background sweep
	SessionsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_swept_total",
			Help: "Total expired sessions reclaimed by the background sweep",
		},
	)
)

// Presentation Metrics
var (
	// SlideNavigationsTotal tracks slide navigation operations by kind
	SlideNavigationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slide_navigations_total",
			Help: "Total slide navigation operations by kind (advance/retreat/goto/sub_advance/sub_retreat)",
		},
		[]string{"kind"},
	)

	// SlidesLoaded tracks the current slide deck size
	SlidesLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slides_loaded",
			Help: "Current number of slides in the deck",
		},
	)

	// LaserPointsBuffered tracks laser points currently in the rolling window
	LaserPointsBuffered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "laser_points_buffered",
			Help: "Laser points currently held in the rolling window",
		},
	)

	// LaserPointsReportedTotal tracks laser point reports received
	LaserPointsReportedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "laser_points_reported_total",
			Help: "Total laser point samples reported",
		},
	)
)

// Viewer Hub Metrics
var (
	// ViewerClientsConnected tracks connected viewer WebSocket clients
	ViewerClientsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "viewer_clients_connected",
			Help: "Current number of connected viewer WebSocket clients",
		},
	)

	// ViewerSlowClientsEvicted tracks slow viewer clients evicted
	ViewerSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "viewer_slow_clients_evicted_total",
			Help: "Total slow viewer clients evicted due to a full send buffer",
		},
	)

	// ViewerBroadcastsTotal tracks view updates pushed to the hub
	ViewerBroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "viewer_broadcasts_total",
			Help: "Total view updates broadcast to viewer clients",
		},
	)
)

// Snapshot Mirror Metrics
var (
	// SnapshotWritesTotal tracks view snapshot writes to Redis by status
	SnapshotWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_writes_total",
			Help: "Total view snapshot writes to Redis by status (ok/error)",
		},
		[]string{"status"},
	)
)

// HTTP Error Metrics
// Note: http_errors_total{type} is provided by internal/errors package
