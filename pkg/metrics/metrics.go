// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// SessionsActive tracks user sessions held in memory.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_sessions_active",
			Help: "Number of user sessions held in memory",
		},
	)

	// ConversationsTotal tracks conversations created and deleted.
	ConversationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_conversations_total",
			Help: "Conversations created or deleted",
		},
		[]string{"op"},
	)

	// MessagesTotal tracks messages appended.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total messages appended",
		},
		[]string{"role"},
	)

	// SendsRejected tracks send and regenerate calls that were refused.
	SendsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_sends_rejected_total",
			Help: "Send or regenerate calls refused by the controller",
		},
		[]string{"reason"},
	)

	// ProducersActive tracks streaming producers currently running.
	ProducersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_producers_active",
			Help: "Number of streaming producers currently running",
		},
	)

	// ProducerTicks tracks producer appends.
	ProducerTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_producer_ticks_total",
			Help: "Total tokens revealed by streaming producers",
		},
	)

	// ProducerDuration tracks the wall time of a producer run.
	ProducerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_producer_duration_seconds",
			Help:    "Streaming producer run duration",
			Buckets: []float64{.1, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"outcome"},
	)

	// ReplyDuration tracks response generation latency.
	ReplyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_reply_generation_seconds",
			Help:    "Response generator latency",
			Buckets: []float64{.01, .1, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"generator", "status"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// NotificationsTotal tracks notifications emitted.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_notifications_total",
			Help: "Notifications emitted",
		},
		[]string{"kind", "sink", "status"},
	)

	// ScansTotal tracks analyzer runs.
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_scans_total",
			Help: "Analyzer runs",
		},
		[]string{"mode", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, route, status string, duration float64) {
	RequestDuration.WithLabelValues(method, route, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// RecordProducer records the outcome of a producer run.
func RecordProducer(completed bool, duration float64) {
	outcome := "completed"
	if !completed {
		outcome = "cancelled"
	}
	ProducerDuration.WithLabelValues(outcome).Observe(duration)
}

// RecordReply records one response generation.
func RecordReply(generator string, err error, duration float64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ReplyDuration.WithLabelValues(generator, status).Observe(duration)
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
