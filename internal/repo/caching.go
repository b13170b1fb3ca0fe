package repo

import (
	"context"
	"time"

	"github.com/podlove/outliner/internal/cache"
	"github.com/podlove/outliner/internal/db"
	"github.com/podlove/outliner/internal/outline"
)

// CachingRepository wraps a Repository with a TTL tree-read cache over
// ListByContainer — the read every Serializer command pays at its "load"
// step — invalidated on any write that could change the result. A
// Serializer only ever has one mutation for its container in
// flight at a time, so invalidating inside the same transaction a write
// happens in never races a concurrent read of that container's entry.
type CachingRepository struct {
	Repository
	trees *cache.Cache[[]outline.Node]
}

// NewCachingRepository wraps inner with a cache holding up to maxEntries
// container trees, each valid for ttl.
func NewCachingRepository(inner Repository, ttl time.Duration, maxEntries int) *CachingRepository {
	return &CachingRepository{Repository: inner, trees: cache.New[[]outline.Node](ttl, maxEntries)}
}

func (c *CachingRepository) ListByContainer(ctx context.Context, containerID string) ([]outline.Node, error) {
	if nodes, ok := c.trees.Get(containerID); ok {
		return nodes, nil
	}
	nodes, err := c.Repository.ListByContainer(ctx, containerID)
	if err != nil {
		return nil, err
	}
	c.trees.Set(containerID, nodes)
	return nodes, nil
}

func (c *CachingRepository) PersistNode(ctx context.Context, q *db.Queries, n outline.Node, isNew bool) error {
	if err := c.Repository.PersistNode(ctx, q, n, isNew); err != nil {
		return err
	}
	c.trees.Delete(n.ContainerID)
	return nil
}

// DeleteNode invalidates the whole cache rather than one container's entry:
// the Repository interface's DeleteNode takes only a uuid, not the
// container it belonged to, and deletes are rare enough next to inserts and
// content changes that the extra cache misses this causes don't matter.
func (c *CachingRepository) DeleteNode(ctx context.Context, q *db.Queries, uuid string) error {
	if err := c.Repository.DeleteNode(ctx, q, uuid); err != nil {
		return err
	}
	c.trees.Clear()
	return nil
}

func (c *CachingRepository) ReplaceURLs(ctx context.Context, q *db.Queries, nodeID string, urls []outline.URLRecord) error {
	if err := c.Repository.ReplaceURLs(ctx, q, nodeID, urls); err != nil {
		return err
	}
	c.trees.Clear()
	return nil
}

// Stop releases the cache's background cleanup goroutine.
func (c *CachingRepository) Stop() { c.trees.Stop() }
