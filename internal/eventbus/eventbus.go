// Package eventbus is the in-memory pub/sub layer: one topic per
// container_id, delivery of each event to every subscriber whose channel
// has room within publishTimeout (a subscriber stuck longer than that
// misses the event and is not sent it again), and echo suppression for the originator that caused an event by inspecting
// the composite event_id ("<uuid>:<originator>", see
// internal/outline.ParseEventID).
package eventbus

import (
	"sync"
	"time"

	"github.com/podlove/outliner/internal/outline"
)

// publishTimeout bounds how long Publish waits for one subscriber's
// channel to drain before giving up on it. A subscriber only ever falls
// behind by this much before being dropped, instead of being dropped the
// instant its buffer is momentarily full.
const publishTimeout = 100 * time.Millisecond

// Bus is a broadcast event bus scoped by container_id. Subscribers
// receive events on buffered channels; Publish blocks up to
// publishTimeout per subscriber so a momentary backlog doesn't cost an
// event, and only gives up on a subscriber that is stuck well past that
// bound.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[chan outline.Event]struct{} // containerID -> set of channels
	// recvToSend maps the receive-only channel a caller holds back to the
	// bidirectional channel stored in subs, the same trick used to let
	// Unsubscribe accept <-chan outline.Event without an illegal
	// conversion.
	recvToSend map[<-chan outline.Event]subscription
}

type subscription struct {
	containerID string
	ch          chan outline.Event
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		subs:       make(map[string]map[chan outline.Event]struct{}),
		recvToSend: make(map[<-chan outline.Event]subscription),
	}
}

// Publish broadcasts ev to every subscriber of ev.ContainerID, waiting up
// to publishTimeout for each subscriber's channel to have room. Safe to
// call on a nil *Bus (no-op), matching the ambient convention that
// publishing from a code path under test with no bus configured never
// panics.
func (b *Bus) Publish(ev outline.Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[ev.ContainerID] {
		timer := time.NewTimer(publishTimeout)
		select {
		case ch <- ev:
			if !timer.Stop() {
				<-timer.C
			}
		case <-timer.C:
		}
	}
}

// Subscribe returns a channel that receives every event published for
// containerID. The caller must call Unsubscribe to release it.
func (b *Bus) Subscribe(containerID string, bufSize int) <-chan outline.Event {
	ch := make(chan outline.Event, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[containerID] == nil {
		b.subs[containerID] = make(map[chan outline.Event]struct{})
	}
	b.subs[containerID][ch] = struct{}{}
	b.recvToSend[ch] = subscription{containerID: containerID, ch: ch}
	return ch
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// with a channel that's already unsubscribed.
func (b *Bus) Unsubscribe(ch <-chan outline.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs[sub.containerID], sub.ch)
	if len(b.subs[sub.containerID]) == 0 {
		delete(b.subs, sub.containerID)
	}
	delete(b.recvToSend, ch)
	close(sub.ch)
}

// SubscriberCount reports how many subscribers a container currently has.
func (b *Bus) SubscriberCount(containerID string) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[containerID])
}

// ShouldSuppress reports whether a subscriber identified by originator
// should skip ev because it was the command's own originator: clients
// suppress their own echo by comparing the originator segment of
// event_id. A malformed event_id (no originator segment) is never
// suppressed, since there is nothing to compare against.
func ShouldSuppress(ev outline.Event, originator string) bool {
	_, evOriginator, ok := outline.ParseEventID(ev.EventID)
	if !ok {
		return false
	}
	return evOriginator == originator
}
