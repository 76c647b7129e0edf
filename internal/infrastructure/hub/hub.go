package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"livemon/internal/core/domain"

	"go.uber.org/zap"
)

// Observer is one subscriber's delivery channel. The sequence counter is
// diagnostic only; ordering comes from the queue itself.
type Observer struct {
	id    uint64
	queue chan domain.Envelope
	done  chan struct{}
	once  sync.Once

	seq   atomic.Uint64
	drops atomic.Uint64
}

// C is the observer's outbound stream. Consumers should also select on
// Done to notice unsubscription.
func (o *Observer) C() <-chan domain.Envelope { return o.queue }

func (o *Observer) Done() <-chan struct{} { return o.done }

func (o *Observer) ID() uint64 { return o.id }

// Drops reports how many messages were evicted from this observer's queue.
func (o *Observer) Drops() uint64 { return o.drops.Load() }

// offer enqueues without ever blocking: a full queue evicts its oldest entry.
func (o *Observer) offer(msg domain.Envelope) (dropped uint64) {
	for {
		select {
		case o.queue <- msg:
			o.seq.Add(1)
			return dropped
		default:
		}
		select {
		case <-o.queue:
			dropped++
			o.drops.Add(1)
		default:
		}
	}
}

// Hub owns the observer set and fans published messages out to every
// subscriber. Slow observers lose their oldest queued messages; they never
// stall publishers or other observers.
type Hub struct {
	mu        sync.RWMutex
	observers map[uint64]*Observer

	queueSize  int
	nextID     atomic.Uint64
	dropsTotal atomic.Uint64

	logger *zap.SugaredLogger
}

func NewHub(queueSize int, logger *zap.SugaredLogger) *Hub {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Hub{
		observers: make(map[uint64]*Observer),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Subscribe registers a new observer. Never blocks.
func (h *Hub) Subscribe() *Observer {
	o := &Observer{
		id:    h.nextID.Add(1),
		queue: make(chan domain.Envelope, h.queueSize),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	h.observers[o.id] = o
	count := len(h.observers)
	h.mu.Unlock()

	h.logger.Infow("observer subscribed", "observer_id", o.id, "observers", count)
	return o
}

// Unsubscribe removes an observer; effective immediately for future
// publishes. Safe to call more than once and from any goroutine.
func (h *Hub) Unsubscribe(o *Observer) {
	if o == nil {
		return
	}

	h.mu.Lock()
	_, present := h.observers[o.id]
	delete(h.observers, o.id)
	count := len(h.observers)
	h.mu.Unlock()

	o.once.Do(func() { close(o.done) })
	if present {
		h.logger.Infow("observer unsubscribed", "observer_id", o.id, "observers", count, "drops", o.Drops())
	}
}

// Publish delivers msg to every subscribed observer.
func (h *Hub) Publish(msg domain.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, o := range h.observers {
		if dropped := o.offer(msg); dropped > 0 {
			h.dropsTotal.Add(dropped)
		}
	}
}

// send delivers msg to a single observer (used for ping replies).
func (h *Hub) send(o *Observer, msg domain.Envelope) {
	if dropped := o.offer(msg); dropped > 0 {
		h.dropsTotal.Add(dropped)
	}
}

// Heartbeat publishes a timestamped liveness message so idle channels still
// see traffic.
func (h *Hub) Heartbeat(now time.Time) {
	h.Publish(domain.NewHeartbeatMessage(now))
}

func (h *Hub) ObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// DropsTotal is the number of messages evicted across all observers since
// the hub started.
func (h *Hub) DropsTotal() uint64 {
	return h.dropsTotal.Load()
}
