package observer

import "hakoniwa.dev/internal/sim/world"

// Version is the observer stream protocol version.
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to change the sampling rate.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// EveryTicks forwards only ticks divisible by it. Zero means every tick.
	EveryTicks uint64 `json:"every_ticks,omitempty"`
}

// Server -> Client, once per forwarded tick.
type TickMsg struct {
	Type            string             `json:"type"`
	ProtocolVersion string             `json:"protocol_version"`
	Entry           world.TickLogEntry `json:"entry"`
}

// HTTP response for GET /status.
type StatusResponse struct {
	ProtocolVersion string             `json:"protocol_version"`
	WorldID         string             `json:"world_id"`
	RunID           string             `json:"run_id"`
	Subscribers     int                `json:"subscribers"`
	Dropped         uint64             `json:"dropped"`
	Metrics         world.WorldMetrics `json:"metrics"`
}
