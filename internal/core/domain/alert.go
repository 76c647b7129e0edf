package domain

import "time"

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)

type Alert struct {
	ID          string        `json:"id"`
	Severity    AlertSeverity `json:"severity"`
	Status      AlertStatus   `json:"status"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	RoomName    string        `json:"room_name,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}

// AlertTransitions is the set of state changes one evaluation tick produced.
type AlertTransitions struct {
	Created  []Alert
	Resolved []Alert
}

func (t AlertTransitions) Empty() bool {
	return len(t.Created) == 0 && len(t.Resolved) == 0
}
