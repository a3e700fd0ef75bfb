package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	ConnectedSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chathub_connected_sessions",
			Help: "Sessions currently registered",
		},
	)

	SessionsReplaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chathub_sessions_replaced_total",
			Help: "Sessions closed because the same user logged in again",
		},
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chathub_auth_failures_total",
			Help: "Rejected authentication attempts",
		},
		[]string{"reason"}, // "missing", "invalid_token", "unknown_user", "credentials"
	)

	// Request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chathub_requests_total",
			Help: "Client requests handled, by event and result code",
		},
		[]string{"event", "code"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chathub_request_duration_seconds",
			Help:    "Client request handling duration",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"event"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chathub_rate_limit_hits_total",
			Help: "Inbound frames dropped by the per-connection limiter",
		},
	)

	// Business metrics
	MessagesPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chathub_messages_persisted_total",
			Help: "Messages stored",
		},
		[]string{"type"},
	)

	ChatsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chathub_chats_created_total",
			Help: "Chats created",
		},
		[]string{"kind"}, // "direct" or "group"
	)

	DirectChatConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chathub_direct_chat_conflicts_total",
			Help: "Concurrent direct chat creations resolved to the existing chat",
		},
	)

	ReadsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chathub_reads_recorded_total",
			Help: "New read receipts, repeated marks excluded",
		},
	)

	MessagesBlocked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chathub_messages_blocked_total",
			Help: "Messages rejected by moderation",
		},
	)

	// Fanout metrics
	EventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chathub_events_delivered_total",
			Help: "Events handed to a session",
		},
		[]string{"event"},
	)

	SlowConsumers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chathub_slow_consumers_total",
			Help: "Sessions closed because their outbound buffer stayed full",
		},
	)

	FanoutQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chathub_fanout_queue_depth",
			Help: "Broadcasts waiting for delivery",
		},
	)

	WorkerRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chathub_worker_restarts_total",
			Help: "Supervised worker restarts after a crash",
		},
		[]string{"worker"},
	)
)
