package serializer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/podlove/outliner/internal/db"
	"github.com/podlove/outliner/internal/eventbus"
	"github.com/podlove/outliner/internal/eventstore"
	"github.com/podlove/outliner/internal/outline"
	"github.com/podlove/outliner/internal/repo"
)

func newTestSerializer(t *testing.T) (*Serializer, repo.Repository, *eventbus.Bus) {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "outline.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	r := repo.NewSQLiteRepository(store)
	bus := eventbus.New()
	s := New("c1", r, eventstore.New(), bus, nil)
	t.Cleanup(s.Stop)
	return s, r, bus
}

func TestSerializerInsertAndChangeContent(t *testing.T) {
	s, r, _ := newTestSerializer(t)
	ctx := context.Background()

	ev, err := s.Submit(ctx, outline.InsertNode{
		CommandBase: outline.CommandBase{EventID: "e1:sess", UserID: "u1"},
		UUID:        "n1", ContainerID: "c1", Content: "hello", CreatorID: "u1",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ev.EventType != outline.EventNodeInserted {
		t.Fatalf("event type = %v", ev.EventType)
	}

	_, err = s.Submit(ctx, outline.ChangeContent{
		CommandBase: outline.CommandBase{EventID: "e2:sess", UserID: "u1"},
		NodeID:      "n1", Content: "hello world",
	})
	if err != nil {
		t.Fatalf("change content: %v", err)
	}

	got, err := r.Get(ctx, "n1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "hello world" {
		t.Fatalf("content = %q", got.Content)
	}
}

func TestSerializerFIFOWithinContainer(t *testing.T) {
	s, r, _ := newTestSerializer(t)
	ctx := context.Background()

	if _, err := s.Submit(ctx, outline.InsertNode{
		CommandBase: outline.CommandBase{EventID: "e1:sess", UserID: "u1"},
		UUID:        "n1", ContainerID: "c1", Content: "a", CreatorID: "u1",
	}); err != nil {
		t.Fatalf("insert n1: %v", err)
	}

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func(i int) {
			_, err := s.Submit(ctx, outline.ChangeContent{
				CommandBase: outline.CommandBase{EventID: "e" + string(rune('a'+i)) + ":sess", UserID: "u1"},
				NodeID:      "n1", Content: "x",
			})
			done <- err
		}(i)
	}
	for i := 0; i < 20; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent change: %v", err)
		}
	}

	got, err := r.Get(ctx, "n1")
	if err != nil || got.Content != "x" {
		t.Fatalf("final content = %+v, %v", got, err)
	}
}

func TestSerializerMergePrevCarriesSurvivorContent(t *testing.T) {
	s, r, _ := newTestSerializer(t)
	ctx := context.Background()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	_, err := s.Submit(ctx, outline.InsertNode{
		CommandBase: outline.CommandBase{EventID: "e1:sess", UserID: "u1"},
		UUID: "n1", ContainerID: "c1", Content: "hello ", CreatorID: "u1",
	})
	must(err)
	_, err = s.Submit(ctx, outline.InsertNode{
		CommandBase: outline.CommandBase{EventID: "e2:sess", UserID: "u1"},
		UUID: "n2", ContainerID: "c1", PrevID: outline.StringPtr("n1"), Content: "world", CreatorID: "u1",
	})
	must(err)

	ev, err := s.Submit(ctx, outline.MergePrev{
		CommandBase: outline.CommandBase{EventID: "e3:sess", UserID: "u1"},
		NodeID:      "n2",
	})
	if err != nil {
		t.Fatalf("merge prev: %v", err)
	}
	if ev.EventType != outline.EventNodeDeleted {
		t.Fatalf("event type = %v", ev.EventType)
	}
	payload, ok := ev.Payload.(outline.NodeDeletedPayload)
	if !ok {
		t.Fatalf("payload type = %T", ev.Payload)
	}
	if payload.Node.UUID != "n1" {
		t.Fatalf("deleted node = %q, want n1", payload.Node.UUID)
	}
	if payload.Survivor == nil || payload.Survivor.UUID != "n2" {
		t.Fatalf("survivor = %+v, want n2", payload.Survivor)
	}
	if payload.Survivor.Content != "hello world" {
		t.Fatalf("survivor content = %q, want %q", payload.Survivor.Content, "hello world")
	}

	got, err := r.Get(ctx, "n2")
	if err != nil {
		t.Fatalf("get n2: %v", err)
	}
	if got.Content != "hello world" {
		t.Fatalf("stored content = %q, want %q", got.Content, "hello world")
	}
}

func TestSerializerDeleteReparentsChildren(t *testing.T) {
	s, _, _ := newTestSerializer(t)
	ctx := context.Background()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	_, err := s.Submit(ctx, outline.InsertNode{
		CommandBase: outline.CommandBase{EventID: "e1:sess", UserID: "u1"},
		UUID: "parent", ContainerID: "c1", Content: "p", CreatorID: "u1",
	})
	must(err)
	_, err = s.Submit(ctx, outline.InsertNode{
		CommandBase: outline.CommandBase{EventID: "e2:sess", UserID: "u1"},
		UUID: "child", ContainerID: "c1", ParentID: outline.StringPtr("parent"), Content: "c", CreatorID: "u1",
	})
	must(err)

	ev, err := s.Submit(ctx, outline.DeleteNode{
		CommandBase: outline.CommandBase{EventID: "e3:sess", UserID: "u1"},
		NodeID:      "parent",
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ev.EventType != outline.EventNodeDeleted {
		t.Fatalf("event type = %v", ev.EventType)
	}
}
