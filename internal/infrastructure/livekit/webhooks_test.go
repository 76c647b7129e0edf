package livekit

import (
	"testing"
	"time"

	"livemon/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestTranslator() *Translator {
	return NewTranslator(zap.NewNop().Sugar())
}

func TestTranslate_RoomStarted(t *testing.T) {
	tr := newTestTranslator()

	ev, ok := tr.Translate(WebhookEvent{
		Event: "room_started",
		Room: &WebhookRoom{
			SID: "RM_abc", Name: "standup",
			CreationTime: 1748779200, MaxParticipants: 50,
		},
	})

	assert.True(t, ok)
	assert.Equal(t, domain.EventRoomStarted, ev.Kind)
	assert.Equal(t, "RM_abc", ev.RoomSID)
	assert.Equal(t, "standup", ev.RoomName)
	assert.Equal(t, 50, ev.MaxParticipants)
	assert.Equal(t, time.Unix(1748779200, 0), ev.Timestamp)
}

func TestTranslate_ParticipantJoinedFallsBackToIdentity(t *testing.T) {
	tr := newTestTranslator()

	ev, ok := tr.Translate(WebhookEvent{
		Event:       "participant_joined",
		Room:        &WebhookRoom{SID: "RM_abc", Name: "standup"},
		Participant: &WebhookParticipant{SID: "PA_1", Identity: "alice@corp"},
	})

	assert.True(t, ok)
	assert.Equal(t, domain.EventParticipantJoined, ev.Kind)
	assert.Equal(t, "PA_1", ev.ParticipantSID)
	assert.Equal(t, "alice@corp", ev.ParticipantName)
	assert.Equal(t, domain.QualityUnknown, ev.Quality)
}

func TestTranslate_ParticipantLeftStateSplitsKind(t *testing.T) {
	tr := newTestTranslator()

	graceful, ok := tr.Translate(WebhookEvent{
		Event:       "participant_left",
		Room:        &WebhookRoom{SID: "RM_abc"},
		Participant: &WebhookParticipant{SID: "PA_1", State: "ACTIVE"},
	})
	assert.True(t, ok)
	assert.Equal(t, domain.EventParticipantLeft, graceful.Kind)

	dropped, ok := tr.Translate(WebhookEvent{
		Event:       "participant_left",
		Room:        &WebhookRoom{SID: "RM_abc"},
		Participant: &WebhookParticipant{SID: "PA_2", State: "DISCONNECTED"},
	})
	assert.True(t, ok)
	assert.Equal(t, domain.EventParticipantDisconnected, dropped.Kind)
}

func TestTranslate_TrackEvents(t *testing.T) {
	tr := newTestTranslator()

	pub, ok := tr.Translate(WebhookEvent{
		Event:       "track_published",
		Room:        &WebhookRoom{SID: "RM_abc"},
		Participant: &WebhookParticipant{SID: "PA_1"},
	})
	assert.True(t, ok)
	assert.Equal(t, domain.EventTrackPublished, pub.Kind)

	unpub, ok := tr.Translate(WebhookEvent{
		Event:       "track_unpublished",
		Room:        &WebhookRoom{SID: "RM_abc"},
		Participant: &WebhookParticipant{SID: "PA_1"},
	})
	assert.True(t, ok)
	assert.Equal(t, domain.EventTrackUnpublished, unpub.Kind)
}

func TestTranslate_IgnoresIncompleteOrUnknownPayloads(t *testing.T) {
	tr := newTestTranslator()

	_, ok := tr.Translate(WebhookEvent{Event: "room_started"})
	assert.False(t, ok)

	_, ok = tr.Translate(WebhookEvent{Event: "participant_joined", Room: &WebhookRoom{SID: "RM_abc"}})
	assert.False(t, ok)

	_, ok = tr.Translate(WebhookEvent{Event: "egress_started", Room: &WebhookRoom{SID: "RM_abc"}})
	assert.False(t, ok)
}
