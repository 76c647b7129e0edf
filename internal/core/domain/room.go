package domain

import "time"

type ConnectionQuality string

const (
	QualityExcellent ConnectionQuality = "excellent"
	QualityGood      ConnectionQuality = "good"
	QualityPoor      ConnectionQuality = "poor"
	QualityUnknown   ConnectionQuality = "unknown"
)

// Score maps a quality level onto the 0-1 scale used for averaging.
// Unknown quality is excluded from the average entirely, so ok is false.
func (q ConnectionQuality) Score() (score float64, ok bool) {
	switch q {
	case QualityExcellent:
		return 1.0, true
	case QualityGood:
		return 0.66, true
	case QualityPoor:
		return 0.33, true
	default:
		return 0, false
	}
}

type Participant struct {
	SID             string            `json:"sid"`
	Name            string            `json:"name,omitempty"`
	JoinedAt        time.Time         `json:"joined_at"`
	Quality         ConnectionQuality `json:"connection_quality"`
	IsPublisher     bool              `json:"is_publisher"`
	TracksPublished int               `json:"tracks_published"`
}

// Room is the read model handed out by the store and carried in hub
// payloads. Participants are ordered by sid for determinism.
type Room struct {
	SID              string        `json:"sid"`
	Name             string        `json:"name"`
	CreatedAt        time.Time     `json:"created_at"`
	MaxParticipants  int           `json:"max_participants"`
	ParticipantCount int           `json:"participant_count"`
	Participants     []Participant `json:"participants"`
}
