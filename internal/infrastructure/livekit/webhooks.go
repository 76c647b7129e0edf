package livekit

import (
	"time"

	"livemon/internal/core/domain"

	"go.uber.org/zap"
)

// WebhookEvent is the wire shape LiveKit posts to the webhook endpoint
// (proto JSON field names).
type WebhookEvent struct {
	Event       string              `json:"event"`
	Room        *WebhookRoom        `json:"room,omitempty"`
	Participant *WebhookParticipant `json:"participant,omitempty"`
	CreatedAt   int64               `json:"createdAt,omitempty"`
}

type WebhookRoom struct {
	SID             string `json:"sid"`
	Name            string `json:"name"`
	CreationTime    int64  `json:"creationTime,omitempty"`
	MaxParticipants int    `json:"maxParticipants,omitempty"`
}

type WebhookParticipant struct {
	SID      string `json:"sid"`
	Identity string `json:"identity"`
	Name     string `json:"name,omitempty"`
	State    string `json:"state,omitempty"`
	JoinedAt int64  `json:"joinedAt,omitempty"`
}

// Translator reduces LiveKit webhook payloads to normalized lifecycle events.
type Translator struct {
	logger *zap.SugaredLogger
}

func NewTranslator(logger *zap.SugaredLogger) *Translator {
	return &Translator{logger: logger}
}

// Translate converts one webhook payload. ok is false when the payload is
// incomplete or the event type carries nothing this pipeline tracks.
func (t *Translator) Translate(ev WebhookEvent) (domain.Event, bool) {
	if ev.Room == nil {
		t.logger.Debugw("webhook event without room payload ignored", "event", ev.Event)
		return domain.Event{}, false
	}

	out := domain.Event{
		RoomSID:  ev.Room.SID,
		RoomName: ev.Room.Name,
	}
	if ev.CreatedAt > 0 {
		out.Timestamp = time.Unix(ev.CreatedAt, 0)
	}

	switch ev.Event {
	case "room_started":
		out.Kind = domain.EventRoomStarted
		out.MaxParticipants = ev.Room.MaxParticipants
		if ev.Room.CreationTime > 0 {
			out.Timestamp = time.Unix(ev.Room.CreationTime, 0)
		}
		return out, true

	case "room_finished":
		out.Kind = domain.EventRoomFinished
		return out, true

	case "participant_joined":
		if ev.Participant == nil {
			return domain.Event{}, false
		}
		out.Kind = domain.EventParticipantJoined
		out.ParticipantSID = ev.Participant.SID
		out.ParticipantName = participantName(ev.Participant)
		out.Quality = domain.QualityUnknown
		if ev.Participant.JoinedAt > 0 {
			out.Timestamp = time.Unix(ev.Participant.JoinedAt, 0)
		}
		return out, true

	case "participant_left":
		if ev.Participant == nil {
			return domain.Event{}, false
		}
		// LiveKit reports an unexpected drop through the participant state.
		if ev.Participant.State == "DISCONNECTED" || ev.Participant.State == "disconnected" {
			out.Kind = domain.EventParticipantDisconnected
		} else {
			out.Kind = domain.EventParticipantLeft
		}
		out.ParticipantSID = ev.Participant.SID
		return out, true

	case "track_published":
		if ev.Participant == nil {
			return domain.Event{}, false
		}
		out.Kind = domain.EventTrackPublished
		out.ParticipantSID = ev.Participant.SID
		return out, true

	case "track_unpublished":
		if ev.Participant == nil {
			return domain.Event{}, false
		}
		out.Kind = domain.EventTrackUnpublished
		out.ParticipantSID = ev.Participant.SID
		return out, true

	default:
		t.logger.Debugw("unhandled webhook event type", "event", ev.Event)
		return domain.Event{}, false
	}
}

func participantName(p *WebhookParticipant) string {
	if p.Name != "" {
		return p.Name
	}
	return p.Identity
}
