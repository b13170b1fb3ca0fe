// Package eventstore is the append-only per-container event log. Appends
// happen inside the same sqlite transaction as the node writes they
// describe (internal/repo.WithinTransaction), so the log and the tree can
// never diverge; sequence numbers are assigned by
// internal/db.Queries.InsertEvent and are strictly increasing per
// container.
package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/podlove/outliner/internal/db"
	"github.com/podlove/outliner/internal/outline"
)

// Store appends and replays events against internal/db. It holds no state
// of its own — every method takes the db.Store or db.Queries it needs —
// since the object it would otherwise cache (the sqlite connection) is
// already owned by internal/db.Store.
type Store struct{}

// New builds an eventstore.Store.
func New() *Store {
	return &Store{}
}

// Append writes one event within the transaction q belongs to and returns
// the event with its assigned sequence filled in.
func (s *Store) Append(ctx context.Context, q *db.Queries, eventType outline.EventType, containerID, eventID, userID string, payload any) (outline.Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return outline.Event{}, fmt.Errorf("eventstore: marshal payload: %w", err)
	}
	now := db.Now()
	seq, err := q.InsertEvent(ctx, db.InsertEventParams{
		ContainerID: containerID,
		EventID:     eventID,
		EventType:   string(eventType),
		UserID:      userID,
		Payload:     string(body),
		CreatedAt:   now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return outline.Event{}, fmt.Errorf("eventstore: insert event: %w", err)
	}
	return outline.Event{
		EventID:     eventID,
		EventType:   eventType,
		ContainerID: containerID,
		UserID:      userID,
		Payload:     payload,
		CreatedAt:   now,
		Sequence:    seq,
	}, nil
}

// ListByContainer returns every event recorded for a container, in
// sequence order, with Payload left as the generic map[string]any decode:
// the replay use case in cmd/outlined doesn't need the concrete payload
// struct, only its fields.
func (s *Store) ListByContainer(ctx context.Context, store *db.Store, containerID string) ([]outline.Event, error) {
	rows, err := store.Queries().ListEventsByContainer(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list events for %s: %w", containerID, err)
	}
	out := make([]outline.Event, 0, len(rows))
	for _, row := range rows {
		ev, err := db.EventRowToDomain(row)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// LatestSequence returns the highest sequence number recorded for a
// container, or 0 if it has no events yet.
func (s *Store) LatestSequence(ctx context.Context, store *db.Store, containerID string) (int64, error) {
	return store.Queries().LatestSequence(ctx, containerID)
}
