// Package mutator implements the pure tree algorithms: insert, move, split,
// merge, indent/outdent and delete over a sibling-group view loaded from
// the Node Repository. Nothing in this
// package touches storage or the event bus — it operates entirely on an
// in-memory Snapshot and returns result structs naming the nodes that
// changed, leaving event payloads, persistence and publication to
// internal/serializer.
package mutator

import "github.com/podlove/outliner/internal/outline"

// Snapshot is an in-memory, mutable copy of every node in one container,
// the loaded subtree a command operates over. Operations mutate the
// Snapshot in place and report which nodes were touched.
type Snapshot struct {
	ContainerID string
	byID        map[string]*outline.Node
}

// NewSnapshot builds a Snapshot from a flat list of nodes belonging to the
// same container. The caller (internal/repo) is responsible for loading
// every node in the container within a single transaction so the view has
// snapshot isolation.
func NewSnapshot(containerID string, nodes []outline.Node) *Snapshot {
	s := &Snapshot{ContainerID: containerID, byID: make(map[string]*outline.Node, len(nodes))}
	for i := range nodes {
		n := nodes[i]
		s.byID[n.UUID] = &n
	}
	return s
}

// Get returns the node with the given uuid, or (nil, false).
func (s *Snapshot) Get(uuid string) (*outline.Node, bool) {
	n, ok := s.byID[uuid]
	return n, ok
}

// mustGet is Get but panics if the node is absent; used internally once a
// caller has already validated existence, to avoid repeating error checks.
func (s *Snapshot) mustGet(uuid string) *outline.Node {
	n, ok := s.byID[uuid]
	if !ok {
		panic("mutator: node " + uuid + " vanished from snapshot mid-operation")
	}
	return n
}

// put inserts or replaces a node in the snapshot.
func (s *Snapshot) put(n *outline.Node) { s.byID[n.UUID] = n }

// delete removes a node from the snapshot.
func (s *Snapshot) delete(uuid string) { delete(s.byID, uuid) }

// All returns every node currently in the snapshot, order unspecified.
func (s *Snapshot) All() []outline.Node {
	out := make([]outline.Node, 0, len(s.byID))
	for _, n := range s.byID {
		out = append(out, *n)
	}
	return out
}

// headOf returns the node with PrevID == nil under the given parent, or nil
// if the sibling group is empty. parentID == nil means root level.
func (s *Snapshot) headOf(parentID *string) *outline.Node {
	for _, n := range s.byID {
		if outline.PtrEqual(n.ParentID, parentID) && n.PrevID == nil {
			return n
		}
	}
	return nil
}

// nextOf returns the node whose PrevID points at uuid, within the same
// sibling group, or nil if uuid is the tail.
func (s *Snapshot) nextOf(uuid string) *outline.Node {
	for _, n := range s.byID {
		if n.PrevID != nil && *n.PrevID == uuid {
			return n
		}
	}
	return nil
}

// directChildren returns the children of uuid in sibling-chain order
// (head first).
func (s *Snapshot) directChildren(parentUUID string) []*outline.Node {
	pid := parentUUID
	cur := s.headOf(&pid)
	var out []*outline.Node
	for cur != nil {
		out = append(out, cur)
		cur = s.nextOf(cur.UUID)
	}
	return out
}

// siblingGroup returns every node sharing the given parent (order
// unspecified); used by validators.
func (s *Snapshot) siblingGroup(parentID *string) []*outline.Node {
	var out []*outline.Node
	for _, n := range s.byID {
		if outline.PtrEqual(n.ParentID, parentID) {
			out = append(out, n)
		}
	}
	return out
}

// descendants returns every descendant of uuid (all depths, not just direct
// children), in breadth-first order. uuid itself is not included.
func (s *Snapshot) descendants(uuid string) []*outline.Node {
	var out []*outline.Node
	queue := []string{uuid}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range s.directChildren(id) {
			out = append(out, child)
			queue = append(queue, child.UUID)
		}
	}
	return out
}

// isDescendant reports whether candidate is a descendant of ancestorUUID
// (following ParentID upward from candidate).
func (s *Snapshot) isDescendant(candidateUUID, ancestorUUID string) bool {
	cur, ok := s.byID[candidateUUID]
	if !ok {
		return false
	}
	for cur.ParentID != nil {
		if *cur.ParentID == ancestorUUID {
			return true
		}
		parent, ok := s.byID[*cur.ParentID]
		if !ok {
			return false
		}
		cur = parent
	}
	return false
}
