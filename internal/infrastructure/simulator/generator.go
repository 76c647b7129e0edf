package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"livemon/internal/core/domain"
	"livemon/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var roomPrefixes = []string{"meeting", "call", "session", "room", "conference", "standup", "interview", "webinar"}

var participantNames = []string{
	"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank", "Grace", "Henry",
	"Ivy", "Jack", "Kate", "Leo", "Mia", "Noah", "Olivia", "Peter",
	"Quinn", "Rachel", "Sam", "Tina", "Uma", "Victor", "Wendy", "Xavier",
}

var qualities = []domain.ConnectionQuality{
	domain.QualityExcellent,
	domain.QualityGood,
	domain.QualityPoor,
	domain.QualityUnknown,
}

// Generator produces synthetic lifecycle events for demo deployments. It is
// just another event producer: everything goes through the same ingest
// entry point the webhook translator and the poller use.
type Generator struct {
	sink  ports.EventSink
	store ports.MetricsStore

	targetRooms int
	interval    time.Duration

	mu        sync.Mutex
	rng       *rand.Rand
	deadlines map[string]time.Time // room sid -> scheduled finish

	logger *zap.SugaredLogger
}

func NewGenerator(sink ports.EventSink, store ports.MetricsStore, targetRooms int, interval time.Duration, logger *zap.SugaredLogger) *Generator {
	if targetRooms <= 0 {
		targetRooms = 5
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Generator{
		sink:        sink,
		store:       store,
		targetRooms: targetRooms,
		interval:    interval,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		deadlines:   make(map[string]time.Time),
		logger:      logger,
	}
}

// Run seeds the initial rooms and then churns state until ctx is cancelled.
func (g *Generator) Run(ctx context.Context) {
	g.logger.Infow("simulator started", "target_rooms", g.targetRooms, "interval", g.interval)

	for i := 0; i < g.targetRooms; i++ {
		g.startRoom(time.Now())
	}

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("simulator stopped")
			return
		case now := <-ticker.C:
			g.Step(now)
		}
	}
}

// Step advances the simulation by one cycle. Exposed for tests.
func (g *Generator) Step(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rooms := g.store.Rooms()
	live := make(map[string]bool, len(rooms))

	for _, room := range rooms {
		live[room.SID] = true

		if deadline, ok := g.deadlines[room.SID]; ok && now.After(deadline) {
			g.sink.Ingest(domain.Event{
				Kind:      domain.EventRoomFinished,
				Timestamp: now,
				RoomSID:   room.SID,
				RoomName:  room.Name,
			})
			delete(g.deadlines, room.SID)
			continue
		}

		g.churnParticipants(now, room)
	}

	for sid := range g.deadlines {
		if !live[sid] {
			delete(g.deadlines, sid)
		}
	}

	for i := len(rooms); i < g.targetRooms; i++ {
		g.startRoomLocked(now)
	}
}

func (g *Generator) churnParticipants(now time.Time, room domain.Room) {
	// Join pressure while the room is under-populated.
	if len(room.Participants) < 2 || (len(room.Participants) < 8 && g.rng.Float64() < 0.3) {
		name := participantNames[g.rng.Intn(len(participantNames))]
		sid := "PA_" + uuid.NewString()[:12]
		g.sink.Ingest(domain.Event{
			Kind:            domain.EventParticipantJoined,
			Timestamp:       now,
			RoomSID:         room.SID,
			ParticipantSID:  sid,
			ParticipantName: name,
			Quality:         domain.QualityUnknown,
		})
		if g.rng.Float64() < 0.5 {
			g.sink.Ingest(domain.Event{
				Kind:           domain.EventTrackPublished,
				Timestamp:      now,
				RoomSID:        room.SID,
				ParticipantSID: sid,
			})
		}
	}

	if len(room.Participants) > 2 && g.rng.Float64() < 0.1 {
		victim := room.Participants[g.rng.Intn(len(room.Participants))]
		kind := domain.EventParticipantLeft
		// A slice of departures are unexpected drops.
		if g.rng.Float64() < 0.25 {
			kind = domain.EventParticipantDisconnected
		}
		g.sink.Ingest(domain.Event{
			Kind:           kind,
			Timestamp:      now,
			RoomSID:        room.SID,
			ParticipantSID: victim.SID,
		})
	}

	for _, participant := range room.Participants {
		if g.rng.Float64() < 0.05 {
			g.sink.Ingest(domain.Event{
				Kind:           domain.EventQualitySample,
				Timestamp:      now,
				RoomSID:        room.SID,
				ParticipantSID: participant.SID,
				Quality:        qualities[g.rng.Intn(len(qualities))],
			})
		}
	}
}

func (g *Generator) startRoom(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.startRoomLocked(now)
}

func (g *Generator) startRoomLocked(now time.Time) {
	sid := "RM_" + uuid.NewString()[:12]
	name := fmt.Sprintf("%s-%04d", roomPrefixes[g.rng.Intn(len(roomPrefixes))], g.rng.Intn(10000))
	lifetime := time.Duration(60+g.rng.Intn(240)) * time.Second

	g.sink.Ingest(domain.Event{
		Kind:            domain.EventRoomStarted,
		Timestamp:       now,
		RoomSID:         sid,
		RoomName:        name,
		MaxParticipants: 10,
	})
	g.deadlines[sid] = now.Add(lifetime)
}
