package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WsConnections open websocket connections
	WsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_connections",
		Help: "Current number of active websocket connections",
	})
	// MessagesSent messages persisted through the send pipeline
	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Total number of chat messages persisted",
	})
	// SendRejected sends refused before persistence, by reason
	SendRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_send_rejected_total",
		Help: "Sends refused before or during persistence",
	}, []string{"reason"})
	// BroadcastDelivered events queued to a session
	BroadcastDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_broadcast_delivered_total",
		Help: "Broadcast events queued to a session",
	})
	// BroadcastDropped events a session could not accept
	BroadcastDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_broadcast_dropped_total",
		Help: "Broadcast events dropped for a slow or closed session",
	})
	// LatestPointerFailures messages stored whose room pointer update failed
	LatestPointerFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_latest_pointer_failures_total",
		Help: "Room latest message updates that failed after a stored message",
	})
	// EventPublishFailures integration events that could not be published
	EventPublishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_event_publish_failures_total",
		Help: "message.created events that failed to publish",
	})
	// HTTPRequestsTotal http requests by route
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	// HTTPRequestDuration http latency by route
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		WsConnections,
		MessagesSent,
		SendRejected,
		BroadcastDelivered,
		BroadcastDropped,
		LatestPointerFailures,
		EventPublishFailures,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// FiberMiddleware 统计基础请求指标，供 Prometheus 拉取
func FiberMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		labels := prometheus.Labels{"method": c.Method(), "path": path, "status": strconv.Itoa(status)}
		HTTPRequestsTotal.With(labels).Inc()
		HTTPRequestDuration.With(labels).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serve the default registry
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
