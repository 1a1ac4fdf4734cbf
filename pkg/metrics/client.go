package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics records outbound API traffic, token refreshes and realtime
// notifications. A nil *ClientMetrics is valid and records nothing.
type ClientMetrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	refreshes     *prometheus.CounterVec
	notifications *prometheus.CounterVec
	reconnects    prometheus.Counter
}

// NewClientMetrics registers the client metrics on the provided registerer.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_client_requests_total",
		Help: "Backend API requests by resource, method and status code.",
	}, []string{"resource", "method", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_client_request_duration_seconds",
		Help:    "Duration of backend API requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource", "method"})
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_token_refresh_total",
		Help: "Access token refresh attempts by outcome.",
	}, []string{"outcome"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_notifications_total",
		Help: "Order status notifications received by status.",
	}, []string{"status"})
	reconnects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "realtime_reconnects_total",
		Help: "Realtime channel reconnect attempts.",
	})
	reg.MustRegister(requests, duration, refreshes, notifications, reconnects)
	return &ClientMetrics{
		requests:      requests,
		duration:      duration,
		refreshes:     refreshes,
		notifications: notifications,
		reconnects:    reconnects,
	}
}

// ObserveRequest records one completed request. code is 0 when no response arrived.
func (c *ClientMetrics) ObserveRequest(resource, method string, code int, elapsed time.Duration) {
	if c == nil || c.requests == nil {
		return
	}
	status := "error"
	if code > 0 {
		status = strconv.Itoa(code)
	}
	c.requests.WithLabelValues(normalizeLabel(resource), method, status).Inc()
	c.duration.WithLabelValues(normalizeLabel(resource), method).Observe(elapsed.Seconds())
}

// IncRefresh counts a token refresh with outcome "success" or "failure".
func (c *ClientMetrics) IncRefresh(outcome string) {
	if c == nil || c.refreshes == nil {
		return
	}
	c.refreshes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncNotification counts an order status notification.
func (c *ClientMetrics) IncNotification(status string) {
	if c == nil || c.notifications == nil {
		return
	}
	c.notifications.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncReconnect counts a realtime reconnect attempt.
func (c *ClientMetrics) IncReconnect() {
	if c == nil || c.reconnects == nil {
		return
	}
	c.reconnects.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
