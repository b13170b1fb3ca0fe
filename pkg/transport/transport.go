// Package transport names the external collaborators the engine is
// designed against but does not implement: the HTTP/WebSocket transport to
// browsers, feed rendering, file storage, authentication, account
// management, the podcast/episode catalog schemas, RSS ingestion, mail
// delivery, and the browser-side DOM glue all invoke the engine through
// the Command API and consume the Event stream. These interfaces exist so
// a real transport package can depend on the engine without the engine
// depending back on any transport: no HTTP, no WebSocket, no JSON-RPC
// framing lives here.
package transport

import (
	"context"

	"github.com/podlove/outliner/internal/eventbus"
	"github.com/podlove/outliner/internal/outline"
)

// CommandSink is what an HTTP/WebSocket handler calls into: the Command
// Dispatcher's public surface, returning a committed event or a typed
// error. internal/dispatcher.Dispatcher satisfies this.
type CommandSink interface {
	Dispatch(ctx context.Context, cmd outline.Command) (outline.Event, error)
}

// EventSubscriber is what a transport package uses to fan committed events
// out to connected clients over the Event Bus. internal/eventbus publishers
// satisfy the producing side; a transport package is expected to implement
// this consuming side itself, one instance per connected client.
type EventSubscriber interface {
	// OnEvent is invoked for every event published on a subscribed
	// container's topic, including ones this subscriber's own session
	// originated — echo suppression via the composite event_id is the
	// subscriber's responsibility, not the bus's.
	OnEvent(ev outline.Event)
}

// ContainerSubscription is returned by a subscribe call so the caller can
// stop receiving events for a container it no longer cares about.
type ContainerSubscription interface {
	Unsubscribe()
}

// EventSource is the subscribing half of the Event Bus a transport package
// depends on: subscribe a client session to a container's event topic.
type EventSource interface {
	Subscribe(containerID string, sub EventSubscriber) ContainerSubscription
}

// BusEventSource adapts internal/eventbus.Bus's channel-based Subscribe to
// the callback-based EventSource a transport package implements against, so
// it never has to see a raw channel or know about the bus's buffering
// discipline.
type BusEventSource struct {
	Bus     *eventbus.Bus
	BufSize int
}

// Subscribe starts a goroutine that forwards every event on containerID's
// topic to sub.OnEvent until Unsubscribe is called.
func (a BusEventSource) Subscribe(containerID string, sub EventSubscriber) ContainerSubscription {
	bufSize := a.BufSize
	if bufSize <= 0 {
		bufSize = 16
	}
	ch := a.Bus.Subscribe(containerID, bufSize)
	go func() {
		for ev := range ch {
			sub.OnEvent(ev)
		}
	}()
	return busSubscription{bus: a.Bus, ch: ch}
}

type busSubscription struct {
	bus *eventbus.Bus
	ch  <-chan outline.Event
}

func (s busSubscription) Unsubscribe() { s.bus.Unsubscribe(s.ch) }
