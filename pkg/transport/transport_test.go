package transport

import (
	"testing"
	"time"

	"github.com/podlove/outliner/internal/eventbus"
	"github.com/podlove/outliner/internal/outline"
)

type recordingSubscriber struct {
	events chan outline.Event
}

func (r *recordingSubscriber) OnEvent(ev outline.Event) { r.events <- ev }

func TestBusEventSourceForwardsEvents(t *testing.T) {
	bus := eventbus.New()
	source := BusEventSource{Bus: bus}

	sub := &recordingSubscriber{events: make(chan outline.Event, 1)}
	subscription := source.Subscribe("c1", sub)
	defer subscription.Unsubscribe()

	bus.Publish(outline.Event{ContainerID: "c1", EventID: "e1:sess"})

	select {
	case ev := <-sub.events:
		if ev.ContainerID != "c1" {
			t.Errorf("container id = %q", ev.ContainerID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusEventSourceUnsubscribeStopsForwarding(t *testing.T) {
	bus := eventbus.New()
	source := BusEventSource{Bus: bus}

	sub := &recordingSubscriber{events: make(chan outline.Event, 1)}
	subscription := source.Subscribe("c1", sub)
	subscription.Unsubscribe()

	// Give the forwarding goroutine a moment to observe channel closure.
	time.Sleep(10 * time.Millisecond)
	bus.Publish(outline.Event{ContainerID: "c1", EventID: "e1:sess"})

	select {
	case ev := <-sub.events:
		t.Fatalf("unexpected event after unsubscribe: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
