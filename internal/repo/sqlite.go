package repo

import (
	"context"
	"fmt"

	"github.com/podlove/outliner/internal/db"
	"github.com/podlove/outliner/internal/outline"
)

// SQLiteRepository implements Repository over internal/db.Store.
type SQLiteRepository struct {
	store *db.Store
}

// NewSQLiteRepository builds a Repository backed by store.
func NewSQLiteRepository(store *db.Store) *SQLiteRepository {
	return &SQLiteRepository{store: store}
}

func (r *SQLiteRepository) loadNode(ctx context.Context, q *db.Queries, row db.NodeRow) (outline.Node, error) {
	urlRows, err := q.ListURLsByNode(ctx, row.UUID)
	if err != nil {
		return outline.Node{}, fmt.Errorf("list urls for node %s: %w", row.UUID, err)
	}
	return db.NodeRowToDomain(row, urlRows)
}

func (r *SQLiteRepository) Get(ctx context.Context, uuid string) (*outline.Node, error) {
	row, err := r.store.Queries().GetNode(ctx, uuid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", outline.ErrNotFound, err)
	}
	n, err := r.loadNode(ctx, r.store.Queries(), row)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *SQLiteRepository) ListByContainer(ctx context.Context, containerID string) ([]outline.Node, error) {
	rows, err := r.store.Queries().ListNodesByContainer(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("list nodes for container %s: %w", containerID, err)
	}
	urlRows, err := r.store.Queries().ListURLsByContainer(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("list urls for container %s: %w", containerID, err)
	}
	byNode := make(map[string][]db.URLRow)
	for _, u := range urlRows {
		byNode[u.NodeID] = append(byNode[u.NodeID], u)
	}

	out := make([]outline.Node, 0, len(rows))
	for _, row := range rows {
		n, err := db.NodeRowToDomain(row, byNode[row.UUID])
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return flatOrder(out), nil
}

func (r *SQLiteRepository) CountByContainer(ctx context.Context, containerID string) (int, error) {
	n, err := r.store.Queries().CountNodesByContainer(ctx, containerID)
	return int(n), err
}

func (r *SQLiteRepository) DirectSiblings(ctx context.Context, nodeID string) ([]outline.Node, error) {
	node, err := r.Get(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	all, err := r.ListByContainer(ctx, node.ContainerID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*outline.Node, len(all))
	for i := range all {
		byID[all[i].UUID] = &all[i]
	}
	var head *outline.Node
	for i := range all {
		if outline.PtrEqual(all[i].ParentID, node.ParentID) && all[i].PrevID == nil {
			head = &all[i]
			break
		}
	}
	var out []outline.Node
	for cur := head; cur != nil; {
		out = append(out, *cur)
		var next *outline.Node
		for i := range all {
			if all[i].PrevID != nil && *all[i].PrevID == cur.UUID {
				next = &all[i]
				break
			}
		}
		cur = next
	}
	return out, nil
}

func (r *SQLiteRepository) AllChildren(ctx context.Context, nodeID string) ([]outline.Node, error) {
	node, err := r.Get(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	all, err := r.ListByContainer(ctx, node.ContainerID)
	if err != nil {
		return nil, err
	}
	childrenOf := make(map[string][]outline.Node)
	for _, n := range all {
		if n.ParentID != nil {
			childrenOf[*n.ParentID] = append(childrenOf[*n.ParentID], n)
		}
	}
	for parent, group := range childrenOf {
		childrenOf[parent] = orderSiblingChain(group)
	}

	var out []outline.Node
	queue := []string{nodeID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range childrenOf[id] {
			out = append(out, child)
			queue = append(queue, child.UUID)
		}
	}
	return out, nil
}

func orderSiblingChain(group []outline.Node) []outline.Node {
	byID := make(map[string]outline.Node, len(group))
	nextOf := make(map[string]string)
	var headID string
	for _, n := range group {
		byID[n.UUID] = n
		if n.PrevID == nil {
			headID = n.UUID
		} else {
			nextOf[*n.PrevID] = n.UUID
		}
	}
	out := make([]outline.Node, 0, len(group))
	for id := headID; id != ""; id = nextOf[id] {
		out = append(out, byID[id])
	}
	return out
}

// flatOrder returns all of a container's nodes in depth-first visual order:
// each sibling group ordered by its prev chain, with a node's children
// nested immediately after it. This is the order a collaborative outline
// renders in, not just the raw row order.
func flatOrder(all []outline.Node) []outline.Node {
	childrenOf := make(map[string][]outline.Node)
	var roots []outline.Node
	for _, n := range all {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		childrenOf[*n.ParentID] = append(childrenOf[*n.ParentID], n)
	}
	roots = orderSiblingChain(roots)
	for parent, group := range childrenOf {
		childrenOf[parent] = orderSiblingChain(group)
	}

	out := make([]outline.Node, 0, len(all))
	var visit func(n outline.Node)
	visit = func(n outline.Node) {
		out = append(out, n)
		for _, child := range childrenOf[n.UUID] {
			visit(child)
		}
	}
	for _, n := range roots {
		visit(n)
	}
	return out
}

func indexOf(nodes []outline.Node, nodeID string) int {
	for i, n := range nodes {
		if n.UUID == nodeID {
			return i
		}
	}
	return -1
}

// NodesAbove returns up to limit predecessors of nodeID in the container's
// flat visual order (depth-first, nearest first): the node directly above it
// on screen, then the one above that, and so on.
func (r *SQLiteRepository) NodesAbove(ctx context.Context, nodeID string, limit int) ([]outline.Node, error) {
	node, err := r.Get(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	all, err := r.ListByContainer(ctx, node.ContainerID)
	if err != nil {
		return nil, err
	}
	flat := flatOrder(all)
	idx := indexOf(flat, nodeID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s not found in its container's flat order", outline.ErrNotFound, nodeID)
	}
	var out []outline.Node
	for i := idx - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, flat[i])
	}
	return out, nil
}

// NodesBelow returns up to limit successors of nodeID in the container's
// flat visual order (depth-first, nearest first).
func (r *SQLiteRepository) NodesBelow(ctx context.Context, nodeID string, limit int) ([]outline.Node, error) {
	node, err := r.Get(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	all, err := r.ListByContainer(ctx, node.ContainerID)
	if err != nil {
		return nil, err
	}
	flat := flatOrder(all)
	idx := indexOf(flat, nodeID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s not found in its container's flat order", outline.ErrNotFound, nodeID)
	}
	var out []outline.Node
	for i := idx + 1; i < len(flat) && len(out) < limit; i++ {
		out = append(out, flat[i])
	}
	return out, nil
}

func (r *SQLiteRepository) WithinTransaction(ctx context.Context, fn func(*db.Queries) error) error {
	return r.store.WithTx(ctx, fn)
}

func (r *SQLiteRepository) PersistNode(ctx context.Context, q *db.Queries, n outline.Node, isNew bool) error {
	if isNew {
		return q.InsertNode(ctx, db.DomainNodeToInsertParams(n))
	}
	return q.UpdateNode(ctx, db.DomainNodeToUpdateParams(n))
}

func (r *SQLiteRepository) DeleteNode(ctx context.Context, q *db.Queries, uuid string) error {
	return q.DeleteNode(ctx, uuid)
}

func (r *SQLiteRepository) ReplaceURLs(ctx context.Context, q *db.Queries, nodeID string, urls []outline.URLRecord) error {
	params, err := db.DomainURLsToParams(urls)
	if err != nil {
		return err
	}
	return q.ReplaceNodeURLs(ctx, nodeID, params)
}
