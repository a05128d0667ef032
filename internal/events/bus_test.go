package events

import (
	"errors"
	"testing"
	"time"
)

func waitFor(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for event delivery")
		return Event{}
	}
}

func TestPublishErrorDeliversToSubscriber(t *testing.T) {
	bus := NewEventBus()
	received := make(chan Event, 1)
	bus.Subscribe(EventError, func(ev Event) {
		received <- ev
	})

	bus.PublishError("engine", "run failed", errors.New("boom"))

	ev := waitFor(t, received)
	if ev.Type != EventError {
		t.Errorf("Expected %s event, got %s", EventError, ev.Type)
	}
	if ev.Data["source"] != "engine" {
		t.Errorf("Expected source engine, got %v", ev.Data["source"])
	}
	if ev.Data["message"] != "run failed" {
		t.Errorf("Expected message 'run failed', got %v", ev.Data["message"])
	}
	if ev.Data["error"] != "boom" {
		t.Errorf("Expected error boom, got %v", ev.Data["error"])
	}
	if ev.Timestamp.IsZero() {
		t.Error("Expected a timestamp stamped on publish")
	}
}

func TestPublishErrorWithoutCause(t *testing.T) {
	bus := NewEventBus()
	received := make(chan Event, 1)
	bus.Subscribe(EventError, func(ev Event) {
		received <- ev
	})

	bus.PublishError("api", "listener stopped", nil)

	ev := waitFor(t, received)
	if _, ok := ev.Data["error"]; ok {
		t.Errorf("Expected no error field for a nil cause, got %v", ev.Data["error"])
	}
}

func TestSubscribeAllReceivesEveryType(t *testing.T) {
	bus := NewEventBus()
	received := make(chan Event, 2)
	bus.SubscribeAll(func(ev Event) {
		received <- ev
	})

	bus.PublishRunCompleted("abc123", 2, 1, 4)
	bus.PublishError("engine", "run failed", errors.New("boom"))

	seen := map[EventType]bool{}
	for i := 0; i < 2; i++ {
		seen[waitFor(t, received).Type] = true
	}
	if !seen[EventRunCompleted] || !seen[EventError] {
		t.Errorf("Expected both event types delivered, saw %v", seen)
	}
}

func TestSubscribeFiltersOtherTypes(t *testing.T) {
	bus := NewEventBus()
	received := make(chan Event, 1)
	bus.Subscribe(EventTradeOpened, func(ev Event) {
		received <- ev
	})

	bus.PublishError("engine", "run failed", errors.New("boom"))
	bus.PublishTradeOpened("01", "BTCUSDT", "LONG", 42150.5)

	ev := waitFor(t, received)
	if ev.Type != EventTradeOpened {
		t.Errorf("Expected only trade opened events, got %s", ev.Type)
	}
	if ev.Data["slno"] != "01" {
		t.Errorf("Expected serial 01, got %v", ev.Data["slno"])
	}
}
