package repo

import (
	"context"
	"testing"
	"time"

	"github.com/podlove/outliner/internal/outline"
)

func TestCachingRepositoryCachesListByContainer(t *testing.T) {
	inner := NewMockRepository()
	buildChain(t, inner)

	c := NewCachingRepository(inner, time.Minute, 10)
	defer c.Stop()
	ctx := context.Background()

	first, err := c.ListByContainer(ctx, "c1")
	if err != nil || len(first) != 3 {
		t.Fatalf("ListByContainer = %d, %v", len(first), err)
	}

	// Mutate the inner repo directly, bypassing the cache, to prove a
	// second read through the cache returns the stale cached value.
	inner.Seed(outline.Node{UUID: "n4", ContainerID: "c1", Content: "four"})

	cached, err := c.ListByContainer(ctx, "c1")
	if err != nil {
		t.Fatalf("ListByContainer: %v", err)
	}
	if len(cached) != 3 {
		t.Fatalf("expected cached read to ignore bypassed mutation, got %d nodes", len(cached))
	}
}

func TestCachingRepositoryInvalidatesOnPersist(t *testing.T) {
	inner := NewMockRepository()
	buildChain(t, inner)

	c := NewCachingRepository(inner, time.Minute, 10)
	defer c.Stop()
	ctx := context.Background()

	if _, err := c.ListByContainer(ctx, "c1"); err != nil {
		t.Fatalf("ListByContainer: %v", err)
	}

	newNode := outline.Node{UUID: "n4", ContainerID: "c1", Content: "four", PrevID: outline.StringPtr("n3")}
	if err := c.PersistNode(ctx, nil, newNode, true); err != nil {
		t.Fatalf("PersistNode: %v", err)
	}

	list, err := c.ListByContainer(ctx, "c1")
	if err != nil {
		t.Fatalf("ListByContainer after persist: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected invalidated cache to reload 4 nodes, got %d", len(list))
	}
}
