package services

import (
	"context"
	"sync"
	"time"

	"livemon/internal/core/domain"
	"livemon/internal/core/ports"

	"go.uber.org/zap"
)

// PipelineCollector receives diagnostics about the pipeline itself.
type PipelineCollector interface {
	RecordEvent(kind domain.EventKind)
	RecordRejectedEvent()
	RecordSnapshot(m domain.SystemMetrics)
	RecordAlertCreated(severity domain.AlertSeverity)
	RecordAlertResolved()
	SetObservers(n int)
	AddDroppedMessages(n uint64)
}

type nopCollector struct{}

func (nopCollector) RecordEvent(domain.EventKind)             {}
func (nopCollector) RecordRejectedEvent()                     {}
func (nopCollector) RecordSnapshot(domain.SystemMetrics)      {}
func (nopCollector) RecordAlertCreated(domain.AlertSeverity)  {}
func (nopCollector) RecordAlertResolved()                     {}
func (nopCollector) SetObservers(int)                         {}
func (nopCollector) AddDroppedMessages(uint64)                {}

// Coordinator is the pipeline's single serialization point: event ingestion
// and the periodic tick both run under its mutex, so store and engine state
// never interleave mid-mutation. Broadcasting happens outside the lock.
type Coordinator struct {
	mu sync.Mutex

	store  ports.MetricsStore
	engine ports.AlertEngine
	hub    ports.Broadcaster

	tickInterval      time.Duration
	heartbeatInterval time.Duration

	collector PipelineCollector
	lastDrops uint64

	logger *zap.SugaredLogger
}

func NewCoordinator(
	store ports.MetricsStore,
	engine ports.AlertEngine,
	broadcaster ports.Broadcaster,
	tickInterval, heartbeatInterval time.Duration,
	collector PipelineCollector,
	logger *zap.SugaredLogger,
) *Coordinator {
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	if heartbeatInterval <= 0 {
		heartbeatInterval = 30 * time.Second
	}
	if collector == nil {
		collector = nopCollector{}
	}
	return &Coordinator{
		store:             store,
		engine:            engine,
		hub:               broadcaster,
		tickInterval:      tickInterval,
		heartbeatInterval: heartbeatInterval,
		collector:         collector,
		logger:            logger,
	}
}

// Ingest applies one normalized event. Room topology changes are pushed to
// observers immediately instead of waiting for the next tick. Unrecognized
// kinds and out-of-order events are absorbed with a log line.
func (c *Coordinator) Ingest(event domain.Event) {
	if !domain.KnownKind(event.Kind) {
		c.logger.Warnw("ignoring event of unknown kind", "kind", event.Kind)
		c.collector.RecordRejectedEvent()
		return
	}

	var finishedRoom domain.Room
	var haveFinished bool

	c.mu.Lock()
	if event.Kind == domain.EventRoomFinished {
		// Capture the room before removal so the notice carries it.
		if room, err := c.store.Room(event.RoomSID); err == nil {
			finishedRoom = room
			haveFinished = true
		}
	}
	err := c.store.Apply(event)
	c.mu.Unlock()

	if err != nil {
		c.logger.Debugw("event absorbed as no-op", "kind", event.Kind, "room_sid", event.RoomSID, "error", err)
		c.collector.RecordRejectedEvent()
		return
	}
	c.collector.RecordEvent(event.Kind)

	switch event.Kind {
	case domain.EventRoomStarted:
		if room, err := c.store.Room(event.RoomSID); err == nil {
			c.hub.Publish(domain.NewRoomMessage(domain.RoomUpdateStarted, room))
		}
	case domain.EventRoomFinished:
		if haveFinished {
			c.hub.Publish(domain.NewRoomMessage(domain.RoomUpdateFinished, finishedRoom))
		}
	}
}

// Run drives the periodic tick and heartbeat until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	tick := time.NewTicker(c.tickInterval)
	defer tick.Stop()
	heartbeat := time.NewTicker(c.heartbeatInterval)
	defer heartbeat.Stop()

	c.logger.Infow("coordinator started", "tick_interval", c.tickInterval, "heartbeat_interval", c.heartbeatInterval)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("coordinator stopped")
			return
		case <-tick.C:
			c.RunTick(time.Now())
		case <-heartbeat.C:
			c.hub.Heartbeat(time.Now())
		}
	}
}

// RunTick performs one aggregation/evaluation cycle and publishes the
// results. Exposed for tests and for adapters that drive virtual time.
func (c *Coordinator) RunTick(now time.Time) {
	c.mu.Lock()
	snapshot := c.store.Tick(now)
	transitions := c.engine.Evaluate(now, snapshot, c.store.Rooms())
	c.mu.Unlock()

	c.hub.Publish(domain.NewMetricsMessage(snapshot))
	for _, alert := range transitions.Created {
		c.hub.Publish(domain.NewAlertMessage(alert))
		c.collector.RecordAlertCreated(alert.Severity)
	}
	for _, alert := range transitions.Resolved {
		c.hub.Publish(domain.NewAlertMessage(alert))
		c.collector.RecordAlertResolved()
	}

	c.collector.RecordSnapshot(snapshot)
	c.collector.SetObservers(c.hub.ObserverCount())
	if drops := c.hub.DropsTotal(); drops > c.lastDrops {
		c.collector.AddDroppedMessages(drops - c.lastDrops)
		c.lastDrops = drops
	}
}

// ResolveAlert manually resolves an alert and notifies observers.
func (c *Coordinator) ResolveAlert(alertID string) (domain.Alert, error) {
	c.mu.Lock()
	alert, err := c.engine.Resolve(alertID)
	c.mu.Unlock()
	if err != nil {
		return domain.Alert{}, err
	}

	c.hub.Publish(domain.NewAlertMessage(alert))
	c.collector.RecordAlertResolved()
	return alert, nil
}
