package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"livemon/internal/core/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ruleHighDisconnectRate   = "high_disconnect_rate"
	ruleHighParticipantCount = "high_participant_count"
	ruleLowQuality           = "low_connection_quality"
	ruleLongRoomPrefix       = "room_long_duration:"
)

// Thresholds are the alert rule boundaries, read-only after construction.
type Thresholds struct {
	DisconnectRatePerMinute float64
	MaxParticipants         int
	MinAvgQuality           float64
	MaxRoomDuration         time.Duration
}

// AlertService tracks one state machine per rule key: an alert is created
// when its condition transitions false→true and resolved when it transitions
// back, or on manual resolution. At most one active alert exists per key.
type AlertService struct {
	mu sync.RWMutex

	thresholds Thresholds

	activeByKey map[string]*domain.Alert
	keyByID     map[string]string
	// suppressed marks keys manually resolved while their condition still
	// held; no new alert fires for the key until the condition goes false
	// and comes back.
	suppressed map[string]bool

	resolved  []domain.Alert
	retention int

	logger *zap.SugaredLogger
}

func NewAlertService(thresholds Thresholds, resolvedRetention int, logger *zap.SugaredLogger) *AlertService {
	if resolvedRetention <= 0 {
		resolvedRetention = 20
	}
	return &AlertService{
		thresholds:  thresholds,
		activeByKey: make(map[string]*domain.Alert),
		keyByID:     make(map[string]string),
		suppressed:  make(map[string]bool),
		retention:   resolvedRetention,
		logger:      logger,
	}
}

// Evaluate runs every rule against the current snapshot and returns the
// state transitions since the previous tick.
func (s *AlertService) Evaluate(now time.Time, metrics domain.SystemMetrics, rooms []domain.Room) domain.AlertTransitions {
	s.mu.Lock()
	defer s.mu.Unlock()

	var trans domain.AlertTransitions

	s.evaluateKey(ruleHighDisconnectRate,
		metrics.DisconnectRate > s.thresholds.DisconnectRatePerMinute,
		now, &trans, func() domain.Alert {
			return s.newAlert(now, domain.SeverityWarning, "High Disconnect Rate",
				fmt.Sprintf("Disconnect rate is %.1f/min (threshold %.1f/min)",
					metrics.DisconnectRate, s.thresholds.DisconnectRatePerMinute), "")
		})

	s.evaluateKey(ruleHighParticipantCount,
		metrics.TotalParticipants > s.thresholds.MaxParticipants,
		now, &trans, func() domain.Alert {
			return s.newAlert(now, domain.SeverityWarning, "High Participant Count",
				fmt.Sprintf("System has %d active participants (threshold %d)",
					metrics.TotalParticipants, s.thresholds.MaxParticipants), "")
		})

	// Quality is averaged over known-quality participants only; a cluster
	// where nobody has reported quality yet must not hold a critical alert.
	qualityKnown := metrics.TotalParticipants > 0 && metrics.AvgQuality > 0
	s.evaluateKey(ruleLowQuality,
		qualityKnown && metrics.AvgQuality < s.thresholds.MinAvgQuality,
		now, &trans, func() domain.Alert {
			return s.newAlert(now, domain.SeverityCritical, "Low Average Connection Quality",
				fmt.Sprintf("Average connection quality is %.0f%%", metrics.AvgQuality*100), "")
		})

	// Per-room rules, ascending sid for deterministic transition order.
	live := make(map[string]bool, len(rooms))
	for _, room := range rooms {
		live[room.SID] = true
		room := room
		s.evaluateKey(ruleLongRoomPrefix+room.SID,
			now.Sub(room.CreatedAt) > s.thresholds.MaxRoomDuration,
			now, &trans, func() domain.Alert {
				minutes := now.Sub(room.CreatedAt).Minutes()
				return s.newAlert(now, domain.SeverityInfo,
					fmt.Sprintf("Room Running for %.0f+ Minutes", minutes),
					fmt.Sprintf("Room %q has been active for %.0f minutes", room.Name, minutes),
					room.Name)
			})
	}

	// Room-keyed alerts whose room disappeared resolve automatically.
	for key, alert := range s.activeByKey {
		if sid, ok := strings.CutPrefix(key, ruleLongRoomPrefix); ok && !live[sid] {
			trans.Resolved = append(trans.Resolved, s.resolveLocked(key, alert, now))
		}
	}
	for key := range s.suppressed {
		if sid, ok := strings.CutPrefix(key, ruleLongRoomPrefix); ok && !live[sid] {
			delete(s.suppressed, key)
		}
	}

	return trans
}

// Resolve manually resolves an active alert. The rule will not re-fire until
// its condition transitions false→true again.
func (s *AlertService) Resolve(alertID string) (domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, exists := s.keyByID[alertID]
	if !exists {
		return domain.Alert{}, domain.ErrAlertNotFound
	}
	alert := s.activeByKey[key]
	resolved := s.resolveLocked(key, alert, time.Now())
	s.suppressed[key] = true
	return resolved, nil
}

// Alerts returns copies of the active set (by creation time) and the
// resolved log (oldest-first).
func (s *AlertService) Alerts() (active []domain.Alert, resolved []domain.Alert) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active = make([]domain.Alert, 0, len(s.activeByKey))
	for _, alert := range s.activeByKey {
		active = append(active, *alert)
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].ID < active[j].ID
		}
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})

	resolved = make([]domain.Alert, len(s.resolved))
	copy(resolved, s.resolved)
	return active, resolved
}

func (s *AlertService) evaluateKey(key string, cond bool, now time.Time, trans *domain.AlertTransitions, build func() domain.Alert) {
	if alert, active := s.activeByKey[key]; active {
		if !cond {
			trans.Resolved = append(trans.Resolved, s.resolveLocked(key, alert, now))
		}
		return
	}

	if !cond {
		// The condition toggled off; a manual resolution no longer pins it.
		delete(s.suppressed, key)
		return
	}
	if s.suppressed[key] {
		return
	}

	alert := build()
	s.activeByKey[key] = &alert
	s.keyByID[alert.ID] = key
	trans.Created = append(trans.Created, alert)
	s.logger.Infow("alert created", "rule_key", key, "severity", alert.Severity, "title", alert.Title)
}

func (s *AlertService) resolveLocked(key string, alert *domain.Alert, now time.Time) domain.Alert {
	resolvedAt := now
	alert.Status = domain.AlertResolved
	alert.ResolvedAt = &resolvedAt

	delete(s.activeByKey, key)
	delete(s.keyByID, alert.ID)

	s.resolved = append(s.resolved, *alert)
	if len(s.resolved) > s.retention {
		s.resolved = s.resolved[len(s.resolved)-s.retention:]
	}

	s.logger.Infow("alert resolved", "rule_key", key, "title", alert.Title)
	return *alert
}

func (s *AlertService) newAlert(now time.Time, severity domain.AlertSeverity, title, description, roomName string) domain.Alert {
	return domain.Alert{
		ID:          uuid.NewString(),
		Severity:    severity,
		Status:      domain.AlertActive,
		Title:       title,
		Description: description,
		RoomName:    roomName,
		CreatedAt:   now,
	}
}
