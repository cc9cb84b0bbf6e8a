package stream

import (
	"testing"
	"time"
)

func TestRegistryIsolatesEvents(t *testing.T) {
	registry := NewRegistry(4, nil)
	chA, cancelA := registry.Subscribe("event-a")
	defer cancelA()
	chB, cancelB := registry.Subscribe("event-b")
	defer cancelB()

	registry.Publish("event-a", Update{CharityID: "charity-1"})

	select {
	case update := <-chA:
		if update.CharityID != "charity-1" {
			t.Fatalf("unexpected update: %+v", update)
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber A got nothing")
	}
	select {
	case update := <-chB:
		t.Fatalf("subscriber B must not receive event-a updates, got %+v", update)
	default:
	}
}

func TestRegistryFanout(t *testing.T) {
	registry := NewRegistry(4, nil)
	ch1, cancel1 := registry.Subscribe("event-a")
	defer cancel1()
	ch2, cancel2 := registry.Subscribe("event-a")
	defer cancel2()

	registry.Publish("event-a", Update{CharityID: "charity-1"})

	for i, ch := range []<-chan Update{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d got nothing", i+1)
		}
	}
}

func TestRegistryDropsWhenSubscriberSlow(t *testing.T) {
	registry := NewRegistry(1, nil)
	ch, cancel := registry.Subscribe("event-a")
	defer cancel()

	registry.Publish("event-a", Update{CharityID: "first"})
	registry.Publish("event-a", Update{CharityID: "second"})
	registry.Publish("event-a", Update{CharityID: "third"})

	if registry.Dropped() != 2 {
		t.Fatalf("expected 2 dropped updates, got %d", registry.Dropped())
	}
	update := <-ch
	if update.CharityID != "first" {
		t.Fatalf("expected oldest buffered update, got %+v", update)
	}
}

func TestRegistryCancel(t *testing.T) {
	registry := NewRegistry(4, nil)
	ch, cancel := registry.Subscribe("event-a")

	if got := registry.Subscribers("event-a"); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}
	cancel()
	cancel() // idempotent

	if got := registry.Subscribers("event-a"); got != 0 {
		t.Fatalf("expected 0 subscribers after cancel, got %d", got)
	}
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after cancel")
	}
	// Publishing to an event with no subscribers is a no-op.
	registry.Publish("event-a", Update{CharityID: "charity-1"})
}

func TestRegistryActiveEvents(t *testing.T) {
	registry := NewRegistry(4, nil)
	_, cancelA := registry.Subscribe("event-a")
	defer cancelA()
	_, cancelB := registry.Subscribe("event-b")

	if got := len(registry.ActiveEvents()); got != 2 {
		t.Fatalf("expected 2 active events, got %d", got)
	}
	cancelB()
	active := registry.ActiveEvents()
	if len(active) != 1 || active[0] != "event-a" {
		t.Fatalf("unexpected active events: %v", active)
	}
}
