package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Rebalance trigger event types.
const (
	EventTaskCompleted     = "task_completed"
	EventTaskBlocked       = "task_blocked"
	EventTaskActivated     = "task_activated"
	EventWorkerUnavailable = "worker_unavailable"
	EventPriorityChanged   = "priority_changed"
)

// Event is one asynchronous rebalance trigger. Scope is the project the
// event belongs to; debouncing and rebalance serialization happen per scope.
type Event struct {
	Type     string         `json:"type"`
	Scope    uuid.UUID      `json:"scope"`
	TaskID   uuid.UUID      `json:"task_id,omitempty"`
	WorkerID uuid.UUID      `json:"worker_id,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
	At       time.Time      `json:"at"`
}

// Bus is the channel-backed event queue between status mutations and the
// coordinator's rebalance loop. Publish never blocks: when the queue is full
// the event is dropped with a warning, since a pending rebalance for the
// scope will pick up the state anyway.
type Bus struct {
	ch     chan Event
	logger *slog.Logger
}

func NewBus(size int, logger *slog.Logger) *Bus {
	if size <= 0 {
		size = 64
	}
	return &Bus{ch: make(chan Event, size), logger: logger}
}

func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case b.ch <- ev:
	default:
		if b.logger != nil {
			b.logger.Warn("event queue full, dropping event", "type", ev.Type, "scope", ev.Scope)
		}
	}
}

// Events exposes the receive side for the coordinator loop.
func (b *Bus) Events() <-chan Event { return b.ch }

// debouncer batches events per scope: the first event for a scope opens a
// window, further events within it accumulate, and when the window elapses
// the batch is flushed as one rebalance trigger.
type debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[uuid.UUID][]Event
	timers  map[uuid.UUID]*time.Timer
	flush   func(scope uuid.UUID, events []Event)
}

func newDebouncer(window time.Duration, flush func(uuid.UUID, []Event)) *debouncer {
	if window <= 0 {
		window = 2 * time.Second
	}
	return &debouncer{
		window:  window,
		pending: make(map[uuid.UUID][]Event),
		timers:  make(map[uuid.UUID]*time.Timer),
		flush:   flush,
	}
}

func (d *debouncer) add(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[ev.Scope] = append(d.pending[ev.Scope], ev)
	if _, running := d.timers[ev.Scope]; running {
		return
	}
	scope := ev.Scope
	d.timers[scope] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		events := d.pending[scope]
		delete(d.pending, scope)
		delete(d.timers, scope)
		d.mu.Unlock()
		if len(events) > 0 {
			d.flush(scope, events)
		}
	})
}

// stop cancels all open windows without flushing.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for scope, t := range d.timers {
		t.Stop()
		delete(d.timers, scope)
		delete(d.pending, scope)
	}
}

// Run consumes the bus until the context ends, feeding the debouncer.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.debounce.stop()
			return
		case ev := <-c.bus.Events():
			c.debounce.add(ev)
		}
	}
}
