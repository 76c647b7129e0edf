package services

import (
	"testing"
	"time"

	"livemon/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// recordingBroadcaster captures everything published for assertions.
type recordingBroadcaster struct {
	published  []domain.Envelope
	heartbeats []time.Time
}

func (b *recordingBroadcaster) Publish(msg domain.Envelope) { b.published = append(b.published, msg) }

func (b *recordingBroadcaster) Heartbeat(now time.Time) { b.heartbeats = append(b.heartbeats, now) }

func (b *recordingBroadcaster) ObserverCount() int { return 0 }

func (b *recordingBroadcaster) DropsTotal() uint64 { return 0 }

func (b *recordingBroadcaster) byType(t domain.MessageType) []domain.Envelope {
	var out []domain.Envelope
	for _, msg := range b.published {
		if msg.Type == t {
			out = append(out, msg)
		}
	}
	return out
}

func newTestCoordinator() (*Coordinator, *recordingBroadcaster, *MetricsService, *AlertService) {
	store := newTestMetricsService(time.Minute, 10)
	engine := newTestAlertService()
	hub := &recordingBroadcaster{}
	coord := NewCoordinator(store, engine, hub, time.Second, 30*time.Second, nil, zap.NewNop().Sugar())
	return coord, hub, store, engine
}

func TestCoordinator_RoomNoticesPublishedImmediately(t *testing.T) {
	coord, hub, _, _ := newTestCoordinator()

	coord.Ingest(roomStarted("RM_a", "standup", testStart))
	coord.Ingest(participantJoined("RM_a", "PA_1", "alice", testStart))

	updates := hub.byType(domain.MessageRoomUpdate)
	assert.Len(t, updates, 1)
	started := updates[0].Data.(domain.RoomUpdate)
	assert.Equal(t, domain.RoomUpdateStarted, started.Type)
	assert.Equal(t, "standup", started.Room.Name)

	coord.Ingest(domain.Event{Kind: domain.EventRoomFinished, Timestamp: testStart.Add(time.Minute), RoomSID: "RM_a"})

	updates = hub.byType(domain.MessageRoomUpdate)
	assert.Len(t, updates, 2)
	finished := updates[1].Data.(domain.RoomUpdate)
	assert.Equal(t, domain.RoomUpdateFinished, finished.Type)
	// the notice carries the room as it was before removal
	assert.Equal(t, "standup", finished.Room.Name)
	assert.Equal(t, 1, finished.Room.ParticipantCount)
}

func TestCoordinator_UnknownEventKindAbsorbed(t *testing.T) {
	coord, hub, store, _ := newTestCoordinator()

	coord.Ingest(domain.Event{Kind: "wat", Timestamp: testStart, RoomSID: "RM_a"})

	assert.Empty(t, hub.published)
	assert.Empty(t, store.Rooms())
}

func TestCoordinator_OutOfOrderEventAbsorbed(t *testing.T) {
	coord, hub, _, _ := newTestCoordinator()

	// participant join for a room that was never started: no publish, no panic
	coord.Ingest(participantJoined("RM_ghost", "PA_1", "alice", testStart))
	assert.Empty(t, hub.published)
}

func TestCoordinator_TickPublishesMetricsAndAlerts(t *testing.T) {
	coord, hub, _, _ := newTestCoordinator()

	coord.Ingest(roomStarted("RM_a", "room", testStart))
	for i := 0; i < 6; i++ {
		sid := string(rune('a' + i))
		coord.Ingest(participantJoined("RM_a", "PA_"+sid, sid, testStart))
		coord.Ingest(domain.Event{
			Kind: domain.EventParticipantDisconnected, Timestamp: testStart.Add(time.Second),
			RoomSID: "RM_a", ParticipantSID: "PA_" + sid,
		})
	}

	coord.RunTick(testStart.Add(2 * time.Second))

	metrics := hub.byType(domain.MessageMetricsUpdate)
	assert.Len(t, metrics, 1)
	snapshot := metrics[0].Data.(domain.SystemMetrics)
	assert.InDelta(t, 6.0, snapshot.DisconnectRate, 1e-9)

	alerts := hub.byType(domain.MessageAlert)
	assert.Len(t, alerts, 1)
	alert := alerts[0].Data.(domain.Alert)
	assert.Equal(t, domain.AlertActive, alert.Status)
	assert.Equal(t, domain.SeverityWarning, alert.Severity)

	// next tick outside the disconnect window resolves it
	coord.RunTick(testStart.Add(2 * time.Minute))
	alerts = hub.byType(domain.MessageAlert)
	assert.Len(t, alerts, 2)
	assert.Equal(t, domain.AlertResolved, alerts[1].Data.(domain.Alert).Status)
}

func TestCoordinator_ResolveAlertPublishes(t *testing.T) {
	coord, hub, _, _ := newTestCoordinator()

	coord.Ingest(roomStarted("RM_a", "room", testStart))
	for i := 0; i < 6; i++ {
		sid := string(rune('a' + i))
		coord.Ingest(participantJoined("RM_a", "PA_"+sid, sid, testStart))
		coord.Ingest(domain.Event{
			Kind: domain.EventParticipantDisconnected, Timestamp: testStart.Add(time.Second),
			RoomSID: "RM_a", ParticipantSID: "PA_" + sid,
		})
	}
	coord.RunTick(testStart.Add(2 * time.Second))

	alerts := hub.byType(domain.MessageAlert)
	assert.Len(t, alerts, 1)
	id := alerts[0].Data.(domain.Alert).ID

	resolved, err := coord.ResolveAlert(id)
	assert.NoError(t, err)
	assert.Equal(t, domain.AlertResolved, resolved.Status)

	alerts = hub.byType(domain.MessageAlert)
	assert.Len(t, alerts, 2)

	_, err = coord.ResolveAlert("nope")
	assert.ErrorIs(t, err, domain.ErrAlertNotFound)
}
