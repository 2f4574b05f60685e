// Package metrics provides Prometheus metrics for chatpane.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shawkym/chatpane/pkg/bridge"
)

// Metrics holds the chatpane collectors. It implements widget.Recorder.
// All methods are safe on a nil receiver so callers can leave metrics off.
type Metrics struct {
	MessagesSent   prometheus.Counter
	BridgeRequests *prometheus.CounterVec
	BridgeDuration *prometheus.HistogramVec
	RepliesRouted  *prometheus.CounterVec
	PanelsRendered *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
	DroppedEvents  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatpane_messages_sent_total",
			Help: "Total user messages submitted",
		}),
		BridgeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatpane_bridge_requests_total",
			Help: "Total backend calls by call name and status",
		}, []string{"call", "status"}),
		BridgeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chatpane_bridge_request_duration_seconds",
			Help:    "Backend call duration in seconds, retries included",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"call"}),
		RepliesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatpane_replies_routed_total",
			Help: "Total chat replies by routed kind",
		}, []string{"kind"}),
		PanelsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatpane_notification_panels_rendered_total",
			Help: "Total panels rendered by kind",
		}, []string{"kind"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatpane_active_sessions",
			Help: "Current number of page sessions",
		}),
		DroppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatpane_dropped_events_total",
			Help: "Total page events dropped because a client fell behind",
		}),
	}

	registry.MustRegister(
		m.MessagesSent,
		m.BridgeRequests,
		m.BridgeDuration,
		m.RepliesRouted,
		m.PanelsRendered,
		m.ActiveSessions,
		m.DroppedEvents,
	)
	return m
}

func (m *Metrics) RecordSend() {
	if m == nil {
		return
	}
	m.MessagesSent.Inc()
}

func (m *Metrics) RecordBridgeCall(call string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.BridgeRequests.WithLabelValues(call, bridge.StatusLabel(err)).Inc()
	m.BridgeDuration.WithLabelValues(call).Observe(duration.Seconds())
}

func (m *Metrics) RecordReply(kind string) {
	if m == nil {
		return
	}
	m.RepliesRouted.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordPanels(kind string, n int) {
	if m == nil {
		return
	}
	m.PanelsRendered.WithLabelValues(kind).Add(float64(n))
}

// SessionOpened and SessionClosed track the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

func (m *Metrics) RecordDroppedEvent() {
	if m == nil {
		return
	}
	m.DroppedEvents.Inc()
}
