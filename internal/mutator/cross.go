package mutator

import (
	"fmt"
	"time"

	"github.com/podlove/outliner/internal/outline"
)

// CrossMoveResult carries the moved node's new state plus what was displaced
// in both the source and destination sibling chains.
type CrossMoveResult struct {
	Node        *outline.Node
	OldNext     *outline.Node   // in the source container
	Next        *outline.Node   // in the destination container
	Descendants []*outline.Node // node's full subtree, carried into the destination container
}

// MoveAcrossContainers moves a single node out of src and into dst — the
// one mutation that touches two containers at once. Callers
// (internal/serializer) are responsible for holding both containers'
// serializer locks, acquired in container_id order, for the duration of
// this call.
func MoveAcrossContainers(src, dst *Snapshot, nodeID string, newParentID, newPrevID *string) (*CrossMoveResult, error) {
	node, ok := src.Get(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node %q", outline.ErrNotFound, nodeID)
	}
	if newParentID != nil {
		if _, ok := dst.Get(*newParentID); !ok {
			return nil, fmt.Errorf("%w: parent_id %q in destination container", outline.ErrNotFound, *newParentID)
		}
	}
	if newPrevID != nil {
		prev, ok := dst.Get(*newPrevID)
		if !ok {
			return nil, fmt.Errorf("%w: prev_id %q in destination container", outline.ErrNotFound, *newPrevID)
		}
		if !outline.PtrEqual(prev.ParentID, newParentID) {
			return nil, outline.ErrParentPrevInconsistent
		}
	}

	// Pull the full subtree before unlinking node from its source chain;
	// a descendant's ParentID/PrevID stay valid once it lands in dst, since
	// the whole subtree moves together and keeps its internal shape.
	descendants := src.descendants(node.UUID)

	// Unlink from the source chain.
	oldNext := src.nextOf(node.UUID)
	if oldNext != nil {
		oldNext.PrevID = node.PrevID
	}
	src.delete(node.UUID)
	for _, d := range descendants {
		src.delete(d.UUID)
	}

	// Relink into the destination chain.
	var next *outline.Node
	if newPrevID == nil {
		next = dst.headOf(newParentID)
	} else {
		next = dst.nextOf(*newPrevID)
	}
	if next != nil {
		next.PrevID = outline.StringPtr(node.UUID)
	}

	now := time.Now()
	node.ContainerID = dst.ContainerID
	node.ParentID = newParentID
	node.PrevID = newPrevID
	node.UpdatedAt = now
	dst.put(node)

	for _, d := range descendants {
		d.ContainerID = dst.ContainerID
		d.UpdatedAt = now
		dst.put(d)
	}

	return &CrossMoveResult{Node: node, OldNext: oldNext, Next: next, Descendants: descendants}, nil
}

// BatchCrossMoveResult carries the moved nodes, each now a root-level node
// in the destination container, plus every descendant carried along with
// them (still nested under their original parent, now inside dst).
type BatchCrossMoveResult struct {
	Nodes       []*outline.Node
	Descendants []*outline.Node
}

// MoveManyAcrossContainers moves each of nodeIDs (in order) out of src and
// appends them as root-level nodes at the tail of dst. Batch moves always
// land at the destination root, never under a caller-chosen parent, since a
// parent choice for N nodes landing at arbitrary points in one call has no
// well-defined ordering semantics.
func MoveManyAcrossContainers(src, dst *Snapshot, nodeIDs []string) (*BatchCrossMoveResult, error) {
	moved := make([]*outline.Node, 0, len(nodeIDs))
	tailID := func() *string {
		cur := dst.headOf(nil)
		if cur == nil {
			return nil
		}
		for {
			next := dst.nextOf(cur.UUID)
			if next == nil {
				return outline.StringPtr(cur.UUID)
			}
			cur = next
		}
	}

	var movedDescendants []*outline.Node

	for _, id := range nodeIDs {
		node, ok := src.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: node %q", outline.ErrNotFound, id)
		}
		descendants := src.descendants(node.UUID)

		oldNext := src.nextOf(node.UUID)
		if oldNext != nil {
			oldNext.PrevID = node.PrevID
		}
		src.delete(node.UUID)
		for _, d := range descendants {
			src.delete(d.UUID)
		}

		prevID := tailID()
		var next *outline.Node
		if prevID == nil {
			next = dst.headOf(nil)
		} else {
			next = dst.nextOf(*prevID)
		}
		if next != nil {
			next.PrevID = outline.StringPtr(node.UUID)
		}

		now := time.Now()
		node.ContainerID = dst.ContainerID
		node.ParentID = nil
		node.PrevID = prevID
		node.UpdatedAt = now
		dst.put(node)

		for _, d := range descendants {
			d.ContainerID = dst.ContainerID
			d.UpdatedAt = now
			dst.put(d)
		}

		moved = append(moved, node)
		movedDescendants = append(movedDescendants, descendants...)
	}

	return &BatchCrossMoveResult{Nodes: moved, Descendants: movedDescendants}, nil
}
