package mutator

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/podlove/outliner/internal/outline"
)

// InsertResult carries what changed so the caller can build a NodeInserted
// event and know which node ids need a URL analyzer job.
type InsertResult struct {
	Node *outline.Node
	Next *outline.Node // whose prev_id now points at Node; nil if none
}

// Insert locates the sibling chain under (snapshot.ContainerID, parentID)
// and links a new node into it.
func Insert(s *Snapshot, parentID, prevID *string, content, uuid, creatorID string) (*InsertResult, error) {
	if prevID != nil {
		prev, ok := s.Get(*prevID)
		if !ok || !outline.PtrEqual(prev.ParentID, parentID) || prev.ContainerID != s.ContainerID {
			return nil, fmt.Errorf("%w: prev_id %q", outline.ErrPositionNotFound, *prevID)
		}
	}

	n := &outline.Node{
		UUID:        uuid,
		Content:     content,
		ContainerID: s.ContainerID,
		ParentID:    parentID,
		PrevID:      prevID,
		CreatorID:   creatorID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	var next *outline.Node
	if prevID == nil {
		next = s.headOf(parentID)
	} else {
		next = s.nextOf(*prevID)
	}
	s.put(n)
	if next != nil {
		next.PrevID = outline.StringPtr(n.UUID)
	}

	return &InsertResult{Node: n, Next: next}, nil
}

// MoveResult carries the before/after state a NodeMoved event needs.
type MoveResult struct {
	Node    *outline.Node
	Next    *outline.Node // new next, pointing at Node after the move
	OldPrev *outline.Node
	OldNext *outline.Node
}

// checkMovePreconditions implements the Consistency Validator. It never
// mutates the snapshot.
func checkMovePreconditions(s *Snapshot, node *outline.Node, newParentID, newPrevID *string) error {
	if outline.PtrEqual(newParentID, node.ParentID) && outline.PtrEqual(newPrevID, node.PrevID) {
		return outline.ErrNoOp
	}
	if newParentID != nil {
		if *newParentID == node.UUID {
			return fmt.Errorf("%w: node cannot become its own parent", outline.ErrCycle)
		}
		if _, ok := s.Get(*newParentID); !ok {
			return fmt.Errorf("%w: parent_id %q", outline.ErrNotFound, *newParentID)
		}
		if s.isDescendant(*newParentID, node.UUID) {
			return fmt.Errorf("%w: %q is a descendant of %q", outline.ErrCycle, *newParentID, node.UUID)
		}
	}
	if newPrevID != nil {
		prev, ok := s.Get(*newPrevID)
		if !ok {
			return fmt.Errorf("%w: prev_id %q", outline.ErrNotFound, *newPrevID)
		}
		if !outline.PtrEqual(prev.ParentID, newParentID) {
			return outline.ErrParentPrevInconsistent
		}
	}
	return nil
}

// Move is the four-step rewire: unlink from the old position, then relink
// under the new one. The Consistency Validator runs first; a no-op move
// returns outline.ErrNoOp without mutating anything.
func Move(s *Snapshot, nodeID string, newParentID, newPrevID *string) (*MoveResult, error) {
	node, ok := s.Get(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node %q", outline.ErrNotFound, nodeID)
	}
	if err := checkMovePreconditions(s, node, newParentID, newPrevID); err != nil {
		return nil, err
	}

	oldParentID, oldPrevID := node.ParentID, node.PrevID
	var oldPrev *outline.Node
	if oldPrevID != nil {
		oldPrev, _ = s.Get(*oldPrevID)
	}
	oldNext := s.nextOf(node.UUID)

	// Step 1: unlink from the old position.
	if oldNext != nil {
		oldNext.PrevID = oldPrevID
	}

	// Step 2: relink under the new position.
	var next *outline.Node
	if newPrevID == nil {
		head := s.headOf(newParentID)
		if head != nil && head.UUID != node.UUID {
			next = head
		}
	} else {
		candidate := s.nextOf(*newPrevID)
		if candidate != nil && candidate.UUID != node.UUID {
			next = candidate
		}
	}
	if next != nil {
		// Tie-break policy: the incumbent's prev_id becomes the moved
		// node's uuid.
		next.PrevID = outline.StringPtr(node.UUID)
	}

	node.ParentID = newParentID
	node.PrevID = newPrevID
	_ = oldParentID

	return &MoveResult{Node: node, Next: next, OldPrev: oldPrev, OldNext: oldNext}, nil
}

// Indent reparents node under its previous sibling, as that sibling's last
// child. Fails with outline.ErrCannotIndent if the node has no previous
// sibling.
func Indent(s *Snapshot, nodeID string) (*MoveResult, error) {
	node, ok := s.Get(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node %q", outline.ErrNotFound, nodeID)
	}
	if node.PrevID == nil {
		return nil, outline.ErrCannotIndent
	}
	newParentID := *node.PrevID
	children := s.directChildren(newParentID)
	var newPrevID *string
	if len(children) > 0 {
		newPrevID = outline.StringPtr(children[len(children)-1].UUID)
	}
	return Move(s, nodeID, outline.StringPtr(newParentID), newPrevID)
}

// Outdent moves node to its grandparent, positioned after its current
// parent. Fails with outline.ErrCannotOutdent at root.
func Outdent(s *Snapshot, nodeID string) (*MoveResult, error) {
	node, ok := s.Get(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node %q", outline.ErrNotFound, nodeID)
	}
	if node.ParentID == nil {
		return nil, outline.ErrCannotOutdent
	}
	parent, ok := s.Get(*node.ParentID)
	if !ok {
		return nil, fmt.Errorf("%w: parent %q", outline.ErrNotFound, *node.ParentID)
	}
	return Move(s, nodeID, parent.ParentID, outline.StringPtr(parent.UUID))
}

// MoveUp swaps node with its immediate previous sibling.
func MoveUp(s *Snapshot, nodeID string) (*MoveResult, error) {
	node, ok := s.Get(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node %q", outline.ErrNotFound, nodeID)
	}
	if node.PrevID == nil {
		return nil, outline.ErrCannotIndent // reuse: there is no earlier position to swap with
	}
	prev, ok := s.Get(*node.PrevID)
	if !ok {
		return nil, fmt.Errorf("%w: prev %q", outline.ErrNotFound, *node.PrevID)
	}
	return Move(s, nodeID, node.ParentID, prev.PrevID)
}

// MoveDown swaps node with its immediate next sibling.
func MoveDown(s *Snapshot, nodeID string) (*MoveResult, error) {
	node, ok := s.Get(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node %q", outline.ErrNotFound, nodeID)
	}
	next := s.nextOf(node.UUID)
	if next == nil {
		return nil, outline.ErrCannotOutdent // reuse: there is no later position to swap with
	}
	return Move(s, next.UUID, node.ParentID, node.PrevID)
}

// SplitResult carries the mutated original node plus the freshly created
// sibling.
type SplitResult struct {
	Node   *outline.Node
	Suffix *outline.Node
}

// ValidateSelection ensures a byte-range selection falls on UTF-8 rune
// boundaries within content, rejecting a mid-rune split rather than
// snapping it to the nearest boundary.
func ValidateSelection(content string, start, stop int) error {
	if start < 0 || stop < start || stop > len(content) {
		return fmt.Errorf("%w: selection [%d,%d) out of range for %d-byte content", outline.ErrInvalidCommand, start, stop, len(content))
	}
	if start < len(content) && !utf8.RuneStart(content[start]) {
		return fmt.Errorf("%w: selection start %d splits a UTF-8 rune", outline.ErrInvalidCommand, start)
	}
	if stop < len(content) && !utf8.RuneStart(content[stop]) {
		return fmt.Errorf("%w: selection stop %d splits a UTF-8 rune", outline.ErrInvalidCommand, stop)
	}
	return nil
}

// Split splits node.Content at (start, stop): the node keeps [0, start);
// a new sibling immediately after it holds [stop, len). The node's children
// move to the new sibling.
func Split(s *Snapshot, nodeID string, start, stop int, newUUID string) (*SplitResult, error) {
	node, ok := s.Get(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node %q", outline.ErrNotFound, nodeID)
	}
	if err := ValidateSelection(node.Content, start, stop); err != nil {
		return nil, err
	}

	prefix := node.Content[:start]
	suffix := node.Content[stop:]

	ins, err := Insert(s, node.ParentID, outline.StringPtr(node.UUID), suffix, newUUID, node.CreatorID)
	if err != nil {
		return nil, err
	}
	suffixNode := ins.Node

	for _, child := range s.directChildren(node.UUID) {
		child.ParentID = outline.StringPtr(suffixNode.UUID)
	}

	node.Content = prefix
	node.UpdatedAt = time.Now()

	return &SplitResult{Node: node, Suffix: suffixNode}, nil
}

// appendAsTrailingChildren reparents the given children (already in order)
// onto the end of target's existing children chain.
func appendAsTrailingChildren(s *Snapshot, target *outline.Node, children []*outline.Node) {
	if len(children) == 0 {
		return
	}
	existing := s.directChildren(target.UUID)
	var tailID *string
	if len(existing) > 0 {
		tailID = outline.StringPtr(existing[len(existing)-1].UUID)
	}
	for i, child := range children {
		child.ParentID = outline.StringPtr(target.UUID)
		if i == 0 {
			child.PrevID = tailID
		}
		// subsequent children already chain to children[i-1] by uuid.
	}
}

// MergeResult carries the surviving node, the deleted neighbor, and any of
// the neighbor's former children that were reparented onto Node — all three
// need to be persisted by the caller.
type MergeResult struct {
	Node               *outline.Node
	Deleted            *outline.Node
	ReparentedChildren []outline.Node
	// AfterNext is the node whose prev_id was rewired to skip over the
	// deleted sibling. Only MergeNext sets it; MergePrev never has one
	// because the surviving node's own identity — and therefore whatever
	// pointed at it — never changes.
	AfterNext *outline.Node
}

// MergePrev prepends the previous sibling's content onto node's and deletes
// that sibling, reparenting its children as node's trailing children.
func MergePrev(s *Snapshot, nodeID string) (*MergeResult, error) {
	node, ok := s.Get(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node %q", outline.ErrNotFound, nodeID)
	}
	if node.PrevID == nil {
		return nil, fmt.Errorf("%w: node %q has no previous sibling to merge with", outline.ErrNotFound, nodeID)
	}
	prev, ok := s.Get(*node.PrevID)
	if !ok {
		return nil, fmt.Errorf("%w: prev %q", outline.ErrNotFound, *node.PrevID)
	}

	children := s.directChildren(prev.UUID)
	appendAsTrailingChildren(s, node, children)
	reparented := make([]outline.Node, len(children))
	for i, c := range children {
		reparented[i] = *c
	}

	node.Content = prev.Content + node.Content
	node.PrevID = prev.PrevID
	node.UpdatedAt = time.Now()

	deleted := *prev
	s.delete(prev.UUID)

	return &MergeResult{Node: node, Deleted: &deleted, ReparentedChildren: reparented}, nil
}

// MergeNext concatenates the next sibling's content onto node's and deletes
// that sibling, reparenting its children as node's trailing children.
func MergeNext(s *Snapshot, nodeID string) (*MergeResult, error) {
	node, ok := s.Get(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node %q", outline.ErrNotFound, nodeID)
	}
	next := s.nextOf(node.UUID)
	if next == nil {
		return nil, fmt.Errorf("%w: node %q has no next sibling to merge with", outline.ErrNotFound, nodeID)
	}

	children := s.directChildren(next.UUID)
	appendAsTrailingChildren(s, node, children)
	reparented := make([]outline.Node, len(children))
	for i, c := range children {
		reparented[i] = *c
	}

	afterNext := s.nextOf(next.UUID)
	if afterNext != nil {
		afterNext.PrevID = outline.StringPtr(node.UUID)
	}

	node.Content = node.Content + next.Content
	node.UpdatedAt = time.Now()

	deleted := *next
	s.delete(next.UUID)

	return &MergeResult{Node: node, Deleted: &deleted, ReparentedChildren: reparented, AfterNext: afterNext}, nil
}

// DeleteResult carries everything a NodeDeleted event needs.
type DeleteResult struct {
	Deleted  outline.Node
	Children []outline.Node // the deleted node's former children, now reparented
	Next     *outline.Node  // the node whose prev_id now follows the reparented children (or node's old prev_id)
}

// Delete unlinks node from its sibling chain; its children are reparented
// to node's former parent, appended in their existing order immediately
// after node's old position, so the subtree flattens by one level rather
// than being destroyed.
func Delete(s *Snapshot, nodeID string) (*DeleteResult, error) {
	node, ok := s.Get(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node %q", outline.ErrNotFound, nodeID)
	}

	children := s.directChildren(node.UUID)
	oldNext := s.nextOf(node.UUID)

	if len(children) == 0 {
		if oldNext != nil {
			oldNext.PrevID = node.PrevID
		}
	} else {
		head := children[0]
		tail := children[len(children)-1]
		head.ParentID = node.ParentID
		head.PrevID = node.PrevID
		for _, c := range children[1:] {
			c.ParentID = node.ParentID
		}
		if oldNext != nil {
			oldNext.PrevID = outline.StringPtr(tail.UUID)
		}
	}

	deleted := *node
	s.delete(node.UUID)

	out := make([]outline.Node, len(children))
	for i, c := range children {
		out[i] = *c
	}

	return &DeleteResult{Deleted: deleted, Children: out, Next: oldNext}, nil
}
