package serializer

import (
	"sync"
	"time"

	"github.com/podlove/outliner/internal/eventbus"
	"github.com/podlove/outliner/internal/eventstore"
	"github.com/podlove/outliner/internal/repo"
)

// Registry is the process-wide map from container_id to its live
// Serializer — the only process-wide mutable structure in the engine, a
// concurrent map with per-entry initialization. Serializers are created
// lazily on first use and torn down after IdleTimeout of inactivity.
type Registry struct {
	repo        repo.Repository
	events      *eventstore.Store
	bus         *eventbus.Bus
	analyzer    AnalyzerQueue
	idleTimeout time.Duration

	mu   sync.Mutex
	live map[string]*entry
}

type entry struct {
	s        *Serializer
	lastUsed time.Time
	timer    *time.Timer
}

// NewRegistry builds a Registry. idleTimeout <= 0 disables automatic
// teardown (Serializers live for the process lifetime, useful in tests).
func NewRegistry(repository repo.Repository, events *eventstore.Store, bus *eventbus.Bus, analyzer AnalyzerQueue, idleTimeout time.Duration) *Registry {
	return &Registry{
		repo:        repository,
		events:      events,
		bus:         bus,
		analyzer:    analyzer,
		idleTimeout: idleTimeout,
		live:        make(map[string]*entry),
	}
}

// Get returns the live Serializer for containerID, creating one if none
// exists yet.
func (r *Registry) Get(containerID string) *Serializer {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.live[containerID]
	if !ok {
		e = &entry{s: New(containerID, r.repo, r.events, r.bus, r.analyzer)}
		r.live[containerID] = e
	}
	e.lastUsed = time.Now()
	r.armTeardown(containerID, e)
	return e.s
}

// armTeardown (re)schedules idle teardown for containerID. Caller must
// hold r.mu.
func (r *Registry) armTeardown(containerID string, e *entry) {
	if r.idleTimeout <= 0 {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(r.idleTimeout, func() {
		r.evictIfIdle(containerID)
	})
}

func (r *Registry) evictIfIdle(containerID string) {
	r.mu.Lock()
	e, ok := r.live[containerID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if time.Since(e.lastUsed) < r.idleTimeout {
		r.mu.Unlock()
		return
	}
	delete(r.live, containerID)
	r.mu.Unlock()

	e.s.Stop()
}

// Len reports how many Serializers are currently live, for tests/metrics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Shutdown stops every live Serializer. Intended for process exit / test
// cleanup, not for normal operation.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.live))
	for id, e := range r.live {
		if e.timer != nil {
			e.timer.Stop()
		}
		entries = append(entries, e)
		delete(r.live, id)
	}
	r.mu.Unlock()

	for _, e := range entries {
		e.s.Stop()
	}
}
