package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/podlove/outliner/internal/db"
	"github.com/podlove/outliner/internal/outline"
)

// buildChain inserts n1 -> n2 -> n3 as root siblings of one container
// into repository.
func buildChain(t *testing.T, repository Repository) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	nodes := []outline.Node{
		{UUID: "n1", ContainerID: "c1", Content: "one", CreatorID: "u", CreatedAt: now, UpdatedAt: now},
		{UUID: "n2", ContainerID: "c1", Content: "two", CreatorID: "u", PrevID: outline.StringPtr("n1"), CreatedAt: now, UpdatedAt: now},
		{UUID: "n3", ContainerID: "c1", Content: "three", CreatorID: "u", PrevID: outline.StringPtr("n2"), CreatedAt: now, UpdatedAt: now},
	}
	for _, n := range nodes {
		if err := repository.WithinTransaction(ctx, func(q *db.Queries) error {
			return repository.PersistNode(ctx, q, n, true)
		}); err != nil {
			t.Fatalf("seed node %s: %v", n.UUID, err)
		}
	}
}

func newSQLiteRepoForTest(t *testing.T) Repository {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "outline.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewSQLiteRepository(store)
}

func TestRepositoryImplementations(t *testing.T) {
	mock := NewMockRepository()
	sqliteRepo := newSQLiteRepoForTest(t)

	for name, r := range map[string]Repository{"mock": mock, "sqlite": sqliteRepo} {
		t.Run(name, func(t *testing.T) {
			buildChain(t, r)
			ctx := context.Background()

			got, err := r.Get(ctx, "n2")
			if err != nil || got.Content != "two" {
				t.Fatalf("Get(n2) = %+v, %v", got, err)
			}

			list, err := r.ListByContainer(ctx, "c1")
			if err != nil || len(list) != 3 {
				t.Fatalf("ListByContainer = %d nodes, %v", len(list), err)
			}

			count, err := r.CountByContainer(ctx, "c1")
			if err != nil || count != 3 {
				t.Fatalf("CountByContainer = %d, %v", count, err)
			}

			siblings, err := r.DirectSiblings(ctx, "n2")
			if err != nil || len(siblings) != 3 || siblings[0].UUID != "n1" || siblings[2].UUID != "n3" {
				t.Fatalf("DirectSiblings = %+v, %v", siblings, err)
			}

			above, err := r.NodesAbove(ctx, "n3", 5)
			if err != nil || len(above) != 2 || above[0].UUID != "n2" {
				t.Fatalf("NodesAbove = %+v, %v", above, err)
			}

			below, err := r.NodesBelow(ctx, "n1", 1)
			if err != nil || len(below) != 1 || below[0].UUID != "n2" {
				t.Fatalf("NodesBelow = %+v, %v", below, err)
			}
		})
	}
}

func TestRepositoryAllChildren(t *testing.T) {
	for name, r := range map[string]Repository{"mock": NewMockRepository(), "sqlite": nil} {
		if name == "sqlite" {
			r = newSQLiteRepoForTest(t)
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()
			nodes := []outline.Node{
				{UUID: "root", ContainerID: "c1", Content: "root", CreatorID: "u", CreatedAt: now, UpdatedAt: now},
				{UUID: "child1", ContainerID: "c1", Content: "c1", CreatorID: "u", ParentID: outline.StringPtr("root"), CreatedAt: now, UpdatedAt: now},
				{UUID: "child2", ContainerID: "c1", Content: "c2", CreatorID: "u", ParentID: outline.StringPtr("root"), PrevID: outline.StringPtr("child1"), CreatedAt: now, UpdatedAt: now},
				{UUID: "grandchild", ContainerID: "c1", Content: "gc", CreatorID: "u", ParentID: outline.StringPtr("child1"), CreatedAt: now, UpdatedAt: now},
			}
			for _, n := range nodes {
				if err := r.WithinTransaction(ctx, func(q *db.Queries) error {
					return r.PersistNode(ctx, q, n, true)
				}); err != nil {
					t.Fatalf("seed %s: %v", n.UUID, err)
				}
			}

			children, err := r.AllChildren(ctx, "root")
			if err != nil {
				t.Fatalf("AllChildren: %v", err)
			}
			if len(children) != 3 {
				t.Fatalf("expected 3 descendants, got %d: %+v", len(children), children)
			}
		})
	}
}

// TestRepositoryFlatOrderCrossesLevels checks that NodesAbove/NodesBelow
// follow the depth-first visual order, not just the direct sibling chain:
// root -> child1 -> grandchild -> child2 when child1 has one child of its
// own.
func TestRepositoryFlatOrderCrossesLevels(t *testing.T) {
	for name, r := range map[string]Repository{"mock": NewMockRepository(), "sqlite": nil} {
		if name == "sqlite" {
			r = newSQLiteRepoForTest(t)
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()
			nodes := []outline.Node{
				{UUID: "root", ContainerID: "c1", Content: "root", CreatorID: "u", CreatedAt: now, UpdatedAt: now},
				{UUID: "child1", ContainerID: "c1", Content: "c1", CreatorID: "u", ParentID: outline.StringPtr("root"), CreatedAt: now, UpdatedAt: now},
				{UUID: "child2", ContainerID: "c1", Content: "c2", CreatorID: "u", ParentID: outline.StringPtr("root"), PrevID: outline.StringPtr("child1"), CreatedAt: now, UpdatedAt: now},
				{UUID: "grandchild", ContainerID: "c1", Content: "gc", CreatorID: "u", ParentID: outline.StringPtr("child1"), CreatedAt: now, UpdatedAt: now},
			}
			for _, n := range nodes {
				if err := r.WithinTransaction(ctx, func(q *db.Queries) error {
					return r.PersistNode(ctx, q, n, true)
				}); err != nil {
					t.Fatalf("seed %s: %v", n.UUID, err)
				}
			}

			// flat order: root, child1, grandchild, child2
			above, err := r.NodesAbove(ctx, "child2", 5)
			if err != nil {
				t.Fatalf("NodesAbove: %v", err)
			}
			if len(above) != 3 || above[0].UUID != "grandchild" || above[1].UUID != "child1" || above[2].UUID != "root" {
				t.Fatalf("NodesAbove(child2) = %+v, want [grandchild, child1, root]", above)
			}

			below, err := r.NodesBelow(ctx, "root", 5)
			if err != nil {
				t.Fatalf("NodesBelow: %v", err)
			}
			if len(below) != 3 || below[0].UUID != "child1" || below[1].UUID != "grandchild" || below[2].UUID != "child2" {
				t.Fatalf("NodesBelow(root) = %+v, want [child1, grandchild, child2]", below)
			}

			oneAbove, err := r.NodesAbove(ctx, "grandchild", 1)
			if err != nil || len(oneAbove) != 1 || oneAbove[0].UUID != "child1" {
				t.Fatalf("NodesAbove(grandchild, 1) = %+v, %v", oneAbove, err)
			}
		})
	}
}

func TestMockReplaceURLs(t *testing.T) {
	m := NewMockRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	m.Seed(outline.Node{UUID: "n1", ContainerID: "c1", Content: "see https://x.test", CreatorID: "u", CreatedAt: now, UpdatedAt: now})

	urls := []outline.URLRecord{{NodeID: "n1", StartBytes: 4, SizeBytes: 14, URL: "https://x.test"}}
	if err := m.ReplaceURLs(ctx, nil, "n1", urls); err != nil {
		t.Fatalf("ReplaceURLs: %v", err)
	}
	got, err := m.Get(ctx, "n1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.URLs) != 1 || got.URLs[0].URL != "https://x.test" {
		t.Fatalf("unexpected urls: %+v", got.URLs)
	}
}
