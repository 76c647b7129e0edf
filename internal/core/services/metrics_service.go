package services

import (
	"sort"
	"sync"
	"time"

	"livemon/internal/core/domain"

	"go.uber.org/zap"
)

type roomState struct {
	sid             string
	name            string
	createdAt       time.Time
	maxParticipants int
	participants    map[string]*domain.Participant
}

// rateBucket accumulates per-second counts of the three rate-bearing event
// kinds. leaves and disconnects are disjoint: an event lands in exactly one.
type rateBucket struct {
	joins       int
	leaves      int
	disconnects int
}

// MetricsService owns room/participant aggregate state, the per-second rate
// buckets and the bounded snapshot history. All external reads get copies.
type MetricsService struct {
	mu sync.RWMutex

	rooms   map[string]*roomState
	buckets map[int64]*rateBucket

	history    *historyRing
	rateWindow time.Duration
	lastTick   time.Time

	logger *zap.SugaredLogger
}

func NewMetricsService(rateWindow time.Duration, historyCapacity int, logger *zap.SugaredLogger) *MetricsService {
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}
	return &MetricsService{
		rooms:      make(map[string]*roomState),
		buckets:    make(map[int64]*rateBucket),
		history:    newHistoryRing(historyCapacity),
		rateWindow: rateWindow,
		logger:     logger,
	}
}

// Apply mutates aggregate state for one event. Malformed or out-of-order
// events are absorbed: the returned error is diagnostic only, the store
// stays consistent and the pipeline keeps running.
func (s *MetricsService) Apply(event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	switch event.Kind {
	case domain.EventRoomStarted:
		if _, exists := s.rooms[event.RoomSID]; exists {
			s.logger.Warnw("duplicate room_started ignored", "room_sid", event.RoomSID)
			return domain.ErrDuplicateRoom
		}
		s.rooms[event.RoomSID] = &roomState{
			sid:             event.RoomSID,
			name:            event.RoomName,
			createdAt:       ts,
			maxParticipants: event.MaxParticipants,
			participants:    make(map[string]*domain.Participant),
		}

	case domain.EventRoomFinished:
		if _, exists := s.rooms[event.RoomSID]; !exists {
			return domain.ErrRoomNotFound
		}
		delete(s.rooms, event.RoomSID)

	case domain.EventParticipantJoined:
		room, exists := s.rooms[event.RoomSID]
		if !exists {
			s.logger.Warnw("join for unknown room ignored", "room_sid", event.RoomSID, "participant_sid", event.ParticipantSID)
			return domain.ErrRoomNotFound
		}
		if p, ok := room.participants[event.ParticipantSID]; ok {
			// Duplicate delivery: refresh mutable fields, no rate event.
			p.Name = event.ParticipantName
			return nil
		}
		quality := event.Quality
		if quality == "" {
			quality = domain.QualityUnknown
		}
		room.participants[event.ParticipantSID] = &domain.Participant{
			SID:      event.ParticipantSID,
			Name:     event.ParticipantName,
			JoinedAt: ts,
			Quality:  quality,
		}
		s.bucket(ts).joins++

	case domain.EventParticipantLeft:
		if !s.removeParticipant(event.RoomSID, event.ParticipantSID) {
			return domain.ErrParticipantNotFound
		}
		s.bucket(ts).leaves++

	case domain.EventParticipantDisconnected:
		if !s.removeParticipant(event.RoomSID, event.ParticipantSID) {
			return domain.ErrParticipantNotFound
		}
		s.bucket(ts).disconnects++

	case domain.EventQualitySample:
		p := s.participant(event.RoomSID, event.ParticipantSID)
		if p == nil {
			return domain.ErrParticipantNotFound
		}
		if event.Quality != "" {
			p.Quality = event.Quality
		}

	case domain.EventTrackPublished:
		p := s.participant(event.RoomSID, event.ParticipantSID)
		if p == nil {
			return domain.ErrParticipantNotFound
		}
		p.TracksPublished++
		p.IsPublisher = true

	case domain.EventTrackUnpublished:
		p := s.participant(event.RoomSID, event.ParticipantSID)
		if p == nil {
			return domain.ErrParticipantNotFound
		}
		if p.TracksPublished > 0 {
			p.TracksPublished--
		}
		if p.TracksPublished == 0 {
			p.IsPublisher = false
		}
	}

	return nil
}

// Tick computes the current snapshot, appends it to history and returns it.
// Snapshot timestamps are monotonic even if the clock briefly stalls.
func (s *MetricsService) Tick(now time.Time) domain.SystemMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Before(s.lastTick) {
		now = s.lastTick
	}
	s.lastTick = now

	joins, leaves, disconnects := s.rates(now)
	windowMinutes := s.rateWindow.Minutes()

	totalParticipants := 0
	var durationSum float64
	var qualitySum float64
	qualityKnown := 0

	for _, room := range s.rooms {
		totalParticipants += len(room.participants)
		durationSum += now.Sub(room.createdAt).Seconds()
		for _, p := range room.participants {
			if score, ok := p.Quality.Score(); ok {
				qualitySum += score
				qualityKnown++
			}
		}
	}

	metrics := domain.SystemMetrics{
		Timestamp:         now,
		ActiveRooms:       len(s.rooms),
		TotalParticipants: totalParticipants,
		JoinRate:          float64(joins) / windowMinutes,
		LeaveRate:         float64(leaves) / windowMinutes,
		DisconnectRate:    float64(disconnects) / windowMinutes,
	}
	if len(s.rooms) > 0 {
		metrics.AvgRoomDurationSec = durationSum / float64(len(s.rooms))
	}
	if qualityKnown > 0 {
		metrics.AvgQuality = qualitySum / float64(qualityKnown)
	}

	s.history.append(metrics)
	return metrics
}

// Snapshot returns the most recent computed metrics, or a zero snapshot
// before the first tick.
func (s *MetricsService) Snapshot() domain.SystemMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest, _ := s.history.latest()
	return latest
}

// History returns up to limit most recent snapshots, oldest-first.
func (s *MetricsService) History(limit int) []domain.SystemMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.history.tail(limit)
}

// Rooms returns a copy of the live room set, ordered by sid.
func (s *MetricsService) Rooms() []domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]domain.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, copyRoom(room))
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].SID < rooms[j].SID })
	return rooms
}

// Room returns one room with its participants.
func (s *MetricsService) Room(sid string) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, exists := s.rooms[sid]
	if !exists {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return copyRoom(room), nil
}

// bucket returns the per-second counter bucket for ts, pruning expired ones.
// Callers hold the write lock.
func (s *MetricsService) bucket(ts time.Time) *rateBucket {
	s.prune(ts)
	key := ts.Unix()
	b, exists := s.buckets[key]
	if !exists {
		b = &rateBucket{}
		s.buckets[key] = b
	}
	return b
}

func (s *MetricsService) prune(now time.Time) {
	cutoff := now.Add(-s.rateWindow).Unix()
	for key := range s.buckets {
		if key < cutoff {
			delete(s.buckets, key)
		}
	}
}

func (s *MetricsService) rates(now time.Time) (joins, leaves, disconnects int) {
	s.prune(now)
	cutoff := now.Add(-s.rateWindow).Unix()
	for key, b := range s.buckets {
		if key < cutoff {
			continue
		}
		joins += b.joins
		leaves += b.leaves
		disconnects += b.disconnects
	}
	return joins, leaves, disconnects
}

func (s *MetricsService) removeParticipant(roomSID, participantSID string) bool {
	room, exists := s.rooms[roomSID]
	if !exists {
		return false
	}
	if _, ok := room.participants[participantSID]; !ok {
		return false
	}
	delete(room.participants, participantSID)
	return true
}

func (s *MetricsService) participant(roomSID, participantSID string) *domain.Participant {
	room, exists := s.rooms[roomSID]
	if !exists {
		return nil
	}
	return room.participants[participantSID]
}

func copyRoom(room *roomState) domain.Room {
	participants := make([]domain.Participant, 0, len(room.participants))
	for _, p := range room.participants {
		participants = append(participants, *p)
	}
	sort.Slice(participants, func(i, j int) bool { return participants[i].SID < participants[j].SID })

	return domain.Room{
		SID:              room.sid,
		Name:             room.name,
		CreatedAt:        room.createdAt,
		MaxParticipants:  room.maxParticipants,
		ParticipantCount: len(participants),
		Participants:     participants,
	}
}
