package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/podlove/outliner/internal/outline"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "outline.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return store
}

func TestOpenAndClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func insertTestNode(t *testing.T, store *Store, n outline.Node) {
	t.Helper()
	ctx := context.Background()
	if err := store.WithTx(ctx, func(q *Queries) error {
		return q.InsertNode(ctx, DomainNodeToInsertParams(n))
	}); err != nil {
		t.Fatalf("insert node %s: %v", n.UUID, err)
	}
}

func TestInsertAndGetNode(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	ctx := context.Background()

	now := Now()
	n := outline.Node{
		UUID:        "node-1",
		Content:     "hello",
		ContainerID: "container-1",
		CreatorID:   "user-1",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	insertTestNode(t, store, n)

	row, err := store.Queries().GetNode(ctx, "node-1")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	got, err := NodeRowToDomain(row, nil)
	if err != nil {
		t.Fatalf("NodeRowToDomain: %v", err)
	}
	if got.Content != "hello" || got.ContainerID != "container-1" {
		t.Errorf("got %+v", got)
	}
	if got.ParentID != nil || got.PrevID != nil {
		t.Errorf("expected root head node, got parent=%v prev=%v", got.ParentID, got.PrevID)
	}
}

func TestListNodesByContainer(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	ctx := context.Background()
	now := Now()

	insertTestNode(t, store, outline.Node{UUID: "a", ContainerID: "c1", Content: "a", CreatorID: "u", CreatedAt: now, UpdatedAt: now})
	insertTestNode(t, store, outline.Node{UUID: "b", ContainerID: "c1", Content: "b", CreatorID: "u", PrevID: outline.StringPtr("a"), CreatedAt: now, UpdatedAt: now})
	insertTestNode(t, store, outline.Node{UUID: "z", ContainerID: "c2", Content: "z", CreatorID: "u", CreatedAt: now, UpdatedAt: now})

	rows, err := store.Queries().ListNodesByContainer(ctx, "c1")
	if err != nil {
		t.Fatalf("ListNodesByContainer: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	count, err := store.Queries().CountNodesByContainer(ctx, "c1")
	if err != nil {
		t.Fatalf("CountNodesByContainer: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestUpdateAndDeleteNode(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	ctx := context.Background()
	now := Now()

	insertTestNode(t, store, outline.Node{UUID: "a", ContainerID: "c1", Content: "a", CreatorID: "u", CreatedAt: now, UpdatedAt: now})

	err := store.WithTx(ctx, func(q *Queries) error {
		return q.UpdateNode(ctx, UpdateNodeParams{UUID: "a", Content: "a2", UpdatedAt: Now().Format(sqliteTimeLayout)})
	})
	if err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}

	row, err := store.Queries().GetNode(ctx, "a")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if row.Content != "a2" {
		t.Errorf("expected updated content, got %q", row.Content)
	}

	if err := store.WithTx(ctx, func(q *Queries) error {
		return q.DeleteNode(ctx, "a")
	}); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}

	if _, err := store.Queries().GetNode(ctx, "a"); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows after delete, got %v", err)
	}
}

func TestReplaceNodeURLs(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	ctx := context.Background()
	now := Now()

	insertTestNode(t, store, outline.Node{UUID: "a", ContainerID: "c1", Content: "see https://example.com", CreatorID: "u", CreatedAt: now, UpdatedAt: now})

	params, err := DomainURLsToParams([]outline.URLRecord{
		{NodeID: "a", StartBytes: 4, SizeBytes: 19, URL: "https://example.com"},
	})
	if err != nil {
		t.Fatalf("DomainURLsToParams: %v", err)
	}
	if err := store.WithTx(ctx, func(q *Queries) error {
		return q.ReplaceNodeURLs(ctx, "a", params)
	}); err != nil {
		t.Fatalf("ReplaceNodeURLs: %v", err)
	}

	urls, err := store.Queries().ListURLsByNode(ctx, "a")
	if err != nil {
		t.Fatalf("ListURLsByNode: %v", err)
	}
	if len(urls) != 1 || urls[0].URL != "https://example.com" {
		t.Fatalf("unexpected urls: %+v", urls)
	}
}

func TestInsertEventAssignsSequence(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 3; i++ {
		err := store.WithTx(ctx, func(q *Queries) error {
			seq, err := q.InsertEvent(ctx, InsertEventParams{
				ContainerID: "c1",
				EventID:     eventIDForTest(i),
				EventType:   "NodeInserted",
				UserID:      "u",
				Payload:     `{}`,
				CreatedAt:   Now().Format(sqliteTimeLayout),
			})
			if err != nil {
				return err
			}
			seqs = append(seqs, seq)
			return nil
		})
		if err != nil {
			t.Fatalf("InsertEvent #%d: %v", i, err)
		}
	}

	for i, seq := range seqs {
		if seq != int64(i+1) {
			t.Errorf("event %d: expected sequence %d, got %d", i, i+1, seq)
		}
	}

	latest, err := store.Queries().LatestSequence(ctx, "c1")
	if err != nil {
		t.Fatalf("LatestSequence: %v", err)
	}
	if latest != 3 {
		t.Errorf("expected latest sequence 3, got %d", latest)
	}
}

func eventIDForTest(i int) string {
	return "uuid-" + string(rune('a'+i)) + ":session-1"
}

func TestNow(t *testing.T) {
	n := Now()
	if n.Location() != time.UTC {
		t.Errorf("Now() should be UTC, got %v", n.Location())
	}
}
