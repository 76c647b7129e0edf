package domain

import "time"

type EventKind string

const (
	EventRoomStarted             EventKind = "room_started"
	EventRoomFinished            EventKind = "room_finished"
	EventParticipantJoined       EventKind = "participant_joined"
	EventParticipantLeft         EventKind = "participant_left"
	EventParticipantDisconnected EventKind = "participant_disconnected"
	EventQualitySample           EventKind = "quality_sample"
	EventTrackPublished          EventKind = "track_published"
	EventTrackUnpublished        EventKind = "track_unpublished"
)

// Event is a normalized room/participant lifecycle fact. Adapters (webhook
// translator, upstream poller, simulator) all reduce their native payloads to
// this shape before handing them to the coordinator.
type Event struct {
	Kind      EventKind
	Timestamp time.Time

	// Room fields (room_started carries name and capacity, every kind
	// carries the room sid).
	RoomSID         string
	RoomName        string
	MaxParticipants int

	// Participant fields.
	ParticipantSID  string
	ParticipantName string
	Quality         ConnectionQuality
}

// KnownKind reports whether k is one of the closed set of event kinds.
// Adapters may forward anything; the coordinator absorbs unknown kinds
// with a log line instead of failing.
func KnownKind(k EventKind) bool {
	switch k {
	case EventRoomStarted, EventRoomFinished,
		EventParticipantJoined, EventParticipantLeft, EventParticipantDisconnected,
		EventQualitySample, EventTrackPublished, EventTrackUnpublished:
		return true
	}
	return false
}
