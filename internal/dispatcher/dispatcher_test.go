package dispatcher

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/podlove/outliner/internal/db"
	"github.com/podlove/outliner/internal/eventbus"
	"github.com/podlove/outliner/internal/eventstore"
	"github.com/podlove/outliner/internal/outline"
	"github.com/podlove/outliner/internal/repo"
	"github.com/podlove/outliner/internal/serializer"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "outline.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	r := repo.NewSQLiteRepository(store)
	registry := serializer.NewRegistry(r, eventstore.New(), eventbus.New(), nil, 0)
	t.Cleanup(registry.Shutdown)
	return New(registry, r, 2*time.Second)
}

func TestDispatchInsertResolvesContainerDirectly(t *testing.T) {
	d := newTestDispatcher(t)
	ev, err := d.Dispatch(context.Background(), outline.InsertNode{
		CommandBase: outline.CommandBase{EventID: "e1:sess", UserID: "u1"},
		UUID:        "n1", ContainerID: "c1", Content: "hello", CreatorID: "u1",
	})
	if err != nil {
		t.Fatalf("dispatch insert: %v", err)
	}
	if ev.ContainerID != "c1" {
		t.Fatalf("container id = %q", ev.ContainerID)
	}
}

func TestDispatchResolvesContainerByLoadingNode(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	if _, err := d.Dispatch(ctx, outline.InsertNode{
		CommandBase: outline.CommandBase{EventID: "e1:sess", UserID: "u1"},
		UUID:        "n1", ContainerID: "c1", Content: "hello", CreatorID: "u1",
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ev, err := d.Dispatch(ctx, outline.ChangeContent{
		CommandBase: outline.CommandBase{EventID: "e2:sess", UserID: "u1"},
		NodeID:      "n1", Content: "updated",
	})
	if err != nil {
		t.Fatalf("dispatch change content: %v", err)
	}
	if ev.ContainerID != "c1" {
		t.Fatalf("container id = %q", ev.ContainerID)
	}
}

func TestDispatchUnknownNodeIsError(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Dispatch(context.Background(), outline.ChangeContent{
		CommandBase: outline.CommandBase{EventID: "e1:sess", UserID: "u1"},
		NodeID:      "missing", Content: "x",
	})
	if err == nil {
		t.Fatal("expected error for unknown node")
	}
}

func TestDispatchCrossContainerMove(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	if _, err := d.Dispatch(ctx, outline.InsertNode{
		CommandBase: outline.CommandBase{EventID: "e1:sess", UserID: "u1"},
		UUID:        "n1", ContainerID: "a", Content: "hello", CreatorID: "u1",
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ev, err := d.Dispatch(ctx, outline.MoveNodeToContainer{
		CommandBase:       outline.CommandBase{EventID: "e2:sess", UserID: "u1"},
		NodeID:            "n1",
		TargetContainerID: "b",
	})
	if err != nil {
		t.Fatalf("dispatch cross move: %v", err)
	}
	if ev.ContainerID != "b" {
		t.Fatalf("container id = %q", ev.ContainerID)
	}
}

func TestDispatchTimeoutRejectsBeforeExecution(t *testing.T) {
	d := newTestDispatcher(t)
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	_, err := d.Dispatch(ctx, outline.InsertNode{
		CommandBase: outline.CommandBase{EventID: "e1:sess", UserID: "u1"},
		UUID:        "n1", ContainerID: "c1", Content: "hello", CreatorID: "u1",
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
