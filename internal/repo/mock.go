package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/podlove/outliner/internal/db"
	"github.com/podlove/outliner/internal/outline"
)

// MockRepository implements Repository entirely in memory, for use by
// internal/repo tests that don't need a real sqlite file. Nodes can be set directly via the Nodes map for test setup.
type MockRepository struct {
	mu    sync.Mutex
	Nodes map[string]outline.Node // keyed by uuid
}

// NewMockRepository creates an empty MockRepository.
func NewMockRepository() *MockRepository {
	return &MockRepository{Nodes: make(map[string]outline.Node)}
}

// Seed inserts nodes directly, bypassing PersistNode, for test fixtures.
func (m *MockRepository) Seed(nodes ...outline.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range nodes {
		m.Nodes[n.UUID] = n
	}
}

func (m *MockRepository) Get(ctx context.Context, uuid string) (*outline.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.Nodes[uuid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", outline.ErrNotFound, uuid)
	}
	return &n, nil
}

func (m *MockRepository) ListByContainer(ctx context.Context, containerID string) ([]outline.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outline.Node
	for _, n := range m.Nodes {
		if n.ContainerID == containerID {
			out = append(out, n)
		}
	}
	return flatOrder(out), nil
}

func (m *MockRepository) CountByContainer(ctx context.Context, containerID string) (int, error) {
	nodes, _ := m.ListByContainer(ctx, containerID)
	return len(nodes), nil
}

func (m *MockRepository) DirectSiblings(ctx context.Context, nodeID string) ([]outline.Node, error) {
	node, err := m.Get(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	all, _ := m.ListByContainer(ctx, node.ContainerID)
	var group []outline.Node
	for _, n := range all {
		if outline.PtrEqual(n.ParentID, node.ParentID) {
			group = append(group, n)
		}
	}
	return orderSiblingChain(group), nil
}

func (m *MockRepository) AllChildren(ctx context.Context, nodeID string) ([]outline.Node, error) {
	node, err := m.Get(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	all, _ := m.ListByContainer(ctx, node.ContainerID)
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

func (m *MockRepository) NodesAbove(ctx context.Context, nodeID string, limit int) ([]outline.Node, error) {
	node, err := m.Get(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	all, _ := m.ListByContainer(ctx, node.ContainerID)
	return slice(flatOrder(all), nodeID, -1, limit)
}

func (m *MockRepository) NodesBelow(ctx context.Context, nodeID string, limit int) ([]outline.Node, error) {
	node, err := m.Get(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	all, _ := m.ListByContainer(ctx, node.ContainerID)
	return slice(flatOrder(all), nodeID, 1, limit)
}

func slice(chain []outline.Node, nodeID string, dir, limit int) ([]outline.Node, error) {
	idx := -1
	for i, n := range chain {
		if n.UUID == nodeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s not found in its container's flat order", outline.ErrNotFound, nodeID)
	}
	var out []outline.Node
	for i := idx + dir; i >= 0 && i < len(chain) && len(out) < limit; i += dir {
		out = append(out, chain[i])
	}
	return out, nil
}

// WithinTransaction has no sqlite transaction to offer; it passes nil,
// which only the SQLite-backed PersistNode/DeleteNode/ReplaceURLs methods
// ever dereference, and this mock never delegates to those — it mutates
// its own map directly in PersistNode et al.
func (m *MockRepository) WithinTransaction(ctx context.Context, fn func(*db.Queries) error) error {
	return fn(nil)
}

func (m *MockRepository) PersistNode(ctx context.Context, q *db.Queries, n outline.Node, isNew bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Nodes[n.UUID] = n
	return nil
}

func (m *MockRepository) DeleteNode(ctx context.Context, q *db.Queries, uuid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Nodes, uuid)
	return nil
}

func (m *MockRepository) ReplaceURLs(ctx context.Context, q *db.Queries, nodeID string, urls []outline.URLRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.Nodes[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", outline.ErrNotFound, nodeID)
	}
	n.URLs = urls
	m.Nodes[nodeID] = n
	return nil
}
