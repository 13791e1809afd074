package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connections tracks authenticated websocket connections.
	Connections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "board_ws_connections",
			Help: "Number of authenticated websocket connections",
		},
	)

	// AuthAttempts records handshake authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "board_auth_attempts_total",
			Help: "Total number of websocket authentication attempts",
		},
		[]string{"result"},
	)

	// RoomEvents counts submitted chat/draw events by outcome (persisted|rejected|failed).
	RoomEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "board_room_events_total",
			Help: "Total number of submitted room events",
		},
		[]string{"kind", "result"},
	)

	// LiveRooms tracks rooms with at least one present member.
	LiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "board_live_rooms",
			Help: "Number of rooms with present members",
		},
	)

	// BroadcastDropped counts frames refused by a full recipient send buffer.
	BroadcastDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "board_broadcast_dropped_total",
			Help: "Total number of outbound frames dropped due to backpressure",
		},
	)
)
