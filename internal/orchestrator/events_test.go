package orchestrator

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBusPublishNeverBlocks(t *testing.T) {
	b := NewBus(1, testLogger())
	scope := uuid.New()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			b.Publish(Event{Type: EventTaskCompleted, Scope: scope})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}

	if got := len(b.Events()); got != 1 {
		t.Errorf("queued %d events, want 1 with the rest dropped", got)
	}
	ev := <-b.Events()
	if ev.At.IsZero() {
		t.Error("Publish should stamp the event time")
	}
}

func TestDebouncerBatchesPerScope(t *testing.T) {
	type flush struct {
		scope  uuid.UUID
		events int
	}
	flushes := make(chan flush, 4)
	d := newDebouncer(20*time.Millisecond, func(scope uuid.UUID, events []Event) {
		flushes <- flush{scope: scope, events: len(events)}
	})

	busy, quiet := uuid.New(), uuid.New()
	for i := 0; i < 3; i++ {
		d.add(Event{Type: EventTaskCompleted, Scope: busy})
	}
	d.add(Event{Type: EventTaskBlocked, Scope: quiet})

	got := make(map[uuid.UUID]int)
	for i := 0; i < 2; i++ {
		select {
		case f := <-flushes:
			got[f.scope] = f.events
		case <-time.After(time.Second):
			t.Fatal("debounce window never flushed")
		}
	}
	if got[busy] != 3 {
		t.Errorf("busy scope flushed %d events, want one batch of 3", got[busy])
	}
	if got[quiet] != 1 {
		t.Errorf("quiet scope flushed %d events, want 1", got[quiet])
	}
	select {
	case f := <-flushes:
		t.Errorf("unexpected extra flush for scope %s", f.scope)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestDebouncerStopDropsPending(t *testing.T) {
	flushed := make(chan struct{}, 1)
	d := newDebouncer(20*time.Millisecond, func(uuid.UUID, []Event) {
		flushed <- struct{}{}
	})

	d.add(Event{Type: EventTaskCompleted, Scope: uuid.New()})
	d.stop()

	select {
	case <-flushed:
		t.Fatal("stopped debouncer should not flush")
	case <-time.After(60 * time.Millisecond):
	}
}
