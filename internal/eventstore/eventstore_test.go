package eventstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/podlove/outliner/internal/db"
	"github.com/podlove/outliner/internal/outline"
)

func openTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "outline.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAssignsIncreasingSequence(t *testing.T) {
	store := openTestStore(t)
	es := New()
	ctx := context.Background()

	var last int64
	for i := 0; i < 3; i++ {
		err := store.WithTx(ctx, func(q *db.Queries) error {
			ev, err := es.Append(ctx, q, outline.EventNodeInserted, "c1", "uuid-"+string(rune('a'+i))+":s1", "u1", outline.NodeInsertedPayload{ContainerID: "c1"})
			if err != nil {
				return err
			}
			if ev.Sequence <= last {
				t.Errorf("sequence did not increase: last=%d got=%d", last, ev.Sequence)
			}
			last = ev.Sequence
			return nil
		})
		if err != nil {
			t.Fatalf("append #%d: %v", i, err)
		}
	}

	events, err := es.ListByContainer(ctx, store, "c1")
	if err != nil {
		t.Fatalf("ListByContainer: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Sequence != int64(i+1) {
			t.Errorf("event %d: expected sequence %d, got %d", i, i+1, ev.Sequence)
		}
	}
}

func TestLatestSequenceEmptyContainer(t *testing.T) {
	store := openTestStore(t)
	es := New()
	seq, err := es.LatestSequence(context.Background(), store, "does-not-exist")
	if err != nil {
		t.Fatalf("LatestSequence: %v", err)
	}
	if seq != 0 {
		t.Errorf("expected 0, got %d", seq)
	}
}
