package domain

import "time"

type MessageType string

const (
	MessageMetricsUpdate MessageType = "metrics_update"
	MessageRoomUpdate    MessageType = "room_update"
	MessageAlert         MessageType = "alert"
	MessageHeartbeat     MessageType = "heartbeat"

	// MessagePong answers an observer's liveness ping; it is the only
	// message addressed to a single observer rather than broadcast.
	MessagePong MessageType = "pong"
)

// Envelope is the tagged message the hub fans out to observers. The hub is
// agnostic to the payload shape; Data must be JSON-serializable.
type Envelope struct {
	Type MessageType `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// RoomUpdate tells observers about a topology change ahead of the next
// metrics tick.
type RoomUpdate struct {
	Type MessageType `json:"type"` // room_started or room_finished
	Room Room        `json:"room"`
}

const (
	RoomUpdateStarted  MessageType = "room_started"
	RoomUpdateFinished MessageType = "room_finished"
)

func NewMetricsMessage(m SystemMetrics) Envelope {
	return Envelope{Type: MessageMetricsUpdate, Data: m}
}

func NewRoomMessage(kind MessageType, room Room) Envelope {
	return Envelope{Type: MessageRoomUpdate, Data: RoomUpdate{Type: kind, Room: room}}
}

func NewAlertMessage(a Alert) Envelope {
	return Envelope{Type: MessageAlert, Data: a}
}

func NewHeartbeatMessage(now time.Time) Envelope {
	return Envelope{Type: MessageHeartbeat, Data: map[string]interface{}{"timestamp": now.UTC()}}
}
