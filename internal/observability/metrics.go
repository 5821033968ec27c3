package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapgram_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// LikesToggled counts like toggles by resulting action (like/unlike).
	LikesToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_likes_toggled_total",
		Help: "Total number of like toggles by resulting action",
	}, []string{"action"})

	// MessagesPublished counts chat messages published to conversation channels.
	MessagesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapgram_chat_messages_published_total",
		Help: "Total number of chat messages published for fan-out",
	})

	// MessagePublishFailures counts fan-out attempts that failed after the
	// message was already persisted.
	MessagePublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapgram_chat_message_publish_failures_total",
		Help: "Total number of chat message fan-out failures",
	})

	// WebSocketConversationConnections is the gauge of connections per conversation.
	WebSocketConversationConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "snapgram_websocket_conversation_connections",
		Help: "Number of WebSocket connections per conversation",
	}, []string{"conversation_id"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snapgram_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}

// WebSocketMetrics tracks WebSocket conversation and connection counts.
type WebSocketMetrics struct {
	conversationCounts map[string]int
}

// NewWebSocketMetrics returns a new WebSocketMetrics instance.
func NewWebSocketMetrics() *WebSocketMetrics {
	return &WebSocketMetrics{
		conversationCounts: make(map[string]int),
	}
}

// IncrementConversation increments the connection count for the conversation.
func (m *WebSocketMetrics) IncrementConversation(convID string) {
	m.conversationCounts[convID]++
	WebSocketConversationConnections.WithLabelValues(convID).Inc()
	WebSocketConnectionsTotal.Inc()
}

// DecrementConversation decrements the connection count for the conversation.
func (m *WebSocketMetrics) DecrementConversation(convID string) {
	if m.conversationCounts[convID] > 0 {
		m.conversationCounts[convID]--
	}
	WebSocketConversationConnections.WithLabelValues(convID).Dec()
	WebSocketConnectionsTotal.Dec()
}

// RecordWebSocketEvent increments the WebSocket events counter for the event type.
func (*WebSocketMetrics) RecordWebSocketEvent(eventType string) {
	WebSocketEventsTotal.WithLabelValues(eventType).Inc()
}
