// Package repo is the Node Repository: the only component that talks SQL.
// It loads sibling-group views and whole-container
// snapshots for the Tree Mutator, and persists the nodes an operation
// touched back to sqlite inside the same transaction as the event log
// append (internal/eventstore composes on top of WithinTransaction for
// exactly this reason).
package repo

import (
	"context"

	"github.com/podlove/outliner/internal/db"
	"github.com/podlove/outliner/internal/outline"
)

// Repository is the data-access boundary the Container Serializer and URL
// Analyzer Worker use. It never mutates node trees itself — that's
// internal/mutator's job over an in-memory Snapshot; Repository only loads
// and persists.
type Repository interface {
	// Get returns a single node, or outline.ErrNotFound.
	Get(ctx context.Context, uuid string) (*outline.Node, error)

	// ListByContainer loads every node in a container — the input to
	// mutator.NewSnapshot and to mutator.ValidateContainer.
	ListByContainer(ctx context.Context, containerID string) ([]outline.Node, error)

	// CountByContainer reports how many nodes a container holds, without
	// loading every node when only the count is needed.
	CountByContainer(ctx context.Context, containerID string) (int, error)

	// DirectSiblings returns every node sharing nodeID's parent, in
	// sibling-chain order (head first), nodeID included.
	DirectSiblings(ctx context.Context, nodeID string) ([]outline.Node, error)

	// AllChildren returns the full subtree rooted at nodeID (nodeID
	// excluded), in breadth-first order.
	AllChildren(ctx context.Context, nodeID string) ([]outline.Node, error)

	// NodesAbove returns up to limit nodes preceding nodeID in its
	// container's flat (depth-first) visual order, nearest first.
	NodesAbove(ctx context.Context, nodeID string, limit int) ([]outline.Node, error)

	// NodesBelow returns up to limit nodes following nodeID in its
	// container's flat (depth-first) visual order, nearest first.
	NodesBelow(ctx context.Context, nodeID string, limit int) ([]outline.Node, error)

	// WithinTransaction runs fn with a *db.Queries bound to a single
	// sqlite transaction, so a mutation's node writes and its event-log
	// append commit or roll back together.
	WithinTransaction(ctx context.Context, fn func(*db.Queries) error) error

	// PersistNode writes n's full current state. isNew selects insert vs.
	// update semantics.
	PersistNode(ctx context.Context, q *db.Queries, n outline.Node, isNew bool) error

	// DeleteNode removes a node row.
	DeleteNode(ctx context.Context, q *db.Queries, uuid string) error

	// ReplaceURLs overwrites the URL records attached to a node — used
	// both by content-changing commands (clearing stale extractions) and
	// by the analyzer (writing enrichment results).
	ReplaceURLs(ctx context.Context, q *db.Queries, nodeID string, urls []outline.URLRecord) error
}
