package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the chat server.
//
// Naming convention: namespace_subsystem_name
// - namespace: parlor (application-level grouping)
// - subsystem: session, room, broadcast, transport (feature-level grouping)
// - name: specific metric (connections_active, events_total, etc.)
//
// Metric Types:
// - Gauge: current state (connections, room membership)
// - Counter: cumulative events (commands processed, records written, drops)

var (
	// ActiveSessions tracks the current number of live TCP sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "parlor",
		Subsystem: "session",
		Name:      "connections_active",
		Help:      "Current number of active chat sessions",
	})

	// RoomMembers tracks the number of unique users in each room.
	RoomMembers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "parlor",
		Subsystem: "room",
		Name:      "members_count",
		Help:      "Number of unique users in each room",
	}, []string{"room"})

	// CommandsProcessed tracks commands handled per type and outcome.
	CommandsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlor",
		Subsystem: "session",
		Name:      "commands_total",
		Help:      "Total client commands processed",
	}, []string{"command", "status"})

	// EventsWritten tracks events written to client sockets per type.
	EventsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlor",
		Subsystem: "transport",
		Name:      "events_written_total",
		Help:      "Total events written to client connections",
	}, []string{"event"})

	// BroadcastsSent tracks events published to room broadcast channels.
	BroadcastsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlor",
		Subsystem: "broadcast",
		Name:      "events_sent_total",
		Help:      "Total events published to room broadcast channels",
	}, []string{"room"})

	// BroadcastLagDrops tracks events lost to subscribers that fell behind
	// the bounded broadcast ring.
	BroadcastLagDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlor",
		Subsystem: "broadcast",
		Name:      "lag_dropped_total",
		Help:      "Events missed by lagging broadcast subscribers",
	}, []string{"room"})

	// TransportDecodeErrors tracks inbound records that failed to decode.
	TransportDecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "parlor",
		Subsystem: "transport",
		Name:      "decode_errors_total",
		Help:      "Total inbound records rejected by the decoder",
	})
)

func IncSession() {
	ActiveSessions.Inc()
}

func DecSession() {
	ActiveSessions.Dec()
}
