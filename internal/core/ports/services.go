package ports

import (
	"time"

	"livemon/internal/core/domain"
)

// EventSink is the single ingestion entry point every event producer
// (webhook translator, upstream poller, simulator) writes into.
type EventSink interface {
	Ingest(event domain.Event)
}

// MetricsStore owns room/participant aggregate state and the metrics history.
type MetricsStore interface {
	Apply(event domain.Event) error
	Tick(now time.Time) domain.SystemMetrics
	Snapshot() domain.SystemMetrics
	History(limit int) []domain.SystemMetrics
	Rooms() []domain.Room
	Room(sid string) (domain.Room, error)
}

// AlertEngine owns alert lifecycle state.
type AlertEngine interface {
	Evaluate(now time.Time, metrics domain.SystemMetrics, rooms []domain.Room) domain.AlertTransitions
	Resolve(alertID string) (domain.Alert, error)
	Alerts() (active []domain.Alert, resolved []domain.Alert)
}

// Broadcaster fans messages out to all subscribed observers.
type Broadcaster interface {
	Publish(msg domain.Envelope)
	Heartbeat(now time.Time)
	ObserverCount() int
	DropsTotal() uint64
}
