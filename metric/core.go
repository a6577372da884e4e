package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics (not domain-specific)
type Metrics struct {
	// Service metrics
	ServiceStatus     *prometheus.GaugeVec
	ErrorsTotal       *prometheus.CounterVec
	HealthCheckStatus *prometheus.GaugeVec

	// Editor metrics
	EditorOperations     *prometheus.CounterVec
	OpenSessions         prometheus.Gauge
	HistoryDepth         *prometheus.GaugeVec
	NotificationsSent    prometheus.Counter
	NotificationsDropped prometheus.Counter

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "flowcanvas",
				Subsystem: "service",
				Name:      "status",
				Help:      "Service status (0=stopped, 1=starting, 2=running, 3=stopping)",
			},
			[]string{"service"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowcanvas",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"service", "type"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "flowcanvas",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"service"},
		),

		EditorOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowcanvas",
				Subsystem: "editor",
				Name:      "operations_total",
				Help:      "Total editor operations by kind (add_node, delete_node, duplicate_node, connect, layout, undo, redo)",
			},
			[]string{"operation"},
		),

		OpenSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "flowcanvas",
				Subsystem: "editor",
				Name:      "open_sessions",
				Help:      "Number of currently open editor sessions",
			},
		),

		HistoryDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "flowcanvas",
				Subsystem: "editor",
				Name:      "history_depth",
				Help:      "Undo history depth per session",
			},
			[]string{"session"},
		),

		NotificationsSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "flowcanvas",
				Subsystem: "editor",
				Name:      "notifications_sent_total",
				Help:      "Total notifications delivered to websocket subscribers",
			},
		),

		NotificationsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "flowcanvas",
				Subsystem: "editor",
				Name:      "notifications_dropped_total",
				Help:      "Total notifications dropped due to slow or absent subscribers",
			},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "flowcanvas",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "flowcanvas",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordServiceStatus records the current status of a service
func (m *Metrics) RecordServiceStatus(service string, status int) {
	m.ServiceStatus.WithLabelValues(service).Set(float64(status))
}

// RecordError increments the error counter for a service
func (m *Metrics) RecordError(service, errType string) {
	m.ErrorsTotal.WithLabelValues(service, errType).Inc()
}

// RecordOperation increments the editor operation counter
func (m *Metrics) RecordOperation(operation string) {
	m.EditorOperations.WithLabelValues(operation).Inc()
}

// RecordHealthCheck records the result of a health check
func (m *Metrics) RecordHealthCheck(service string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.HealthCheckStatus.WithLabelValues(service).Set(v)
}
