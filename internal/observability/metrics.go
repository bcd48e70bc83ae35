package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "parcelchat_ws_active_connections",
			Help: "Number of active realtime chat connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelchat_ws_events_total",
			Help: "Total number of realtime connection lifecycle events.",
		},
		[]string{"event"},
	)
	reconnectAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "parcelchat_ws_reconnect_attempts_total",
			Help: "Total number of scheduled reconnection attempts.",
		},
	)
	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelchat_frames_total",
			Help: "Total number of inbound frames dispatched, by frame type.",
		},
		[]string{"type"},
	)
	droppedFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelchat_dropped_frames_total",
			Help: "Total number of inbound frames dropped, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		wsActiveConnections,
		wsEventsTotal,
		reconnectAttemptsTotal,
		framesTotal,
		droppedFramesTotal,
	)
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncReconnectAttempt() {
	reconnectAttemptsTotal.Inc()
}

func IncFrame(frameType string) {
	framesTotal.WithLabelValues(frameType).Inc()
}

func IncDroppedFrame(reason string) {
	droppedFramesTotal.WithLabelValues(reason).Inc()
}
