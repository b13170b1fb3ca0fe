package mutator

import (
	"fmt"
	"sort"

	"github.com/podlove/outliner/internal/outline"
)

// ValidationIssue describes a single violation found by ValidateContainer.
type ValidationIssue struct {
	NodeID string
	Detail string
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", i.NodeID, i.Detail)
}

// ValidateContainer checks every tree invariant against a full set of
// nodes for one container. It exists for test/debug use — the
// live command path never needs a full scan, since Move's own precondition
// check (checkMovePreconditions) enforces the same invariants incrementally.
//
// Invariants checked:
//  1. Each sibling group has exactly one head (PrevID == nil).
//  2. No two nodes in the same sibling group share a PrevID (no forks).
//  3. Every non-nil PrevID/ParentID resolves to a node that exists.
//  4. Following ParentID from any node terminates at a root (no cycles).
//  5. The set of nodes reachable from the roots by ParentID/PrevID traversal
//     equals the full node set (no orphaned or dangling chains).
func ValidateContainer(nodes []outline.Node) []ValidationIssue {
	var issues []ValidationIssue

	byID := make(map[string]*outline.Node, len(nodes))
	for i := range nodes {
		byID[nodes[i].UUID] = &nodes[i]
	}

	// 3. dangling references.
	for _, n := range nodes {
		if n.ParentID != nil {
			if _, ok := byID[*n.ParentID]; !ok {
				issues = append(issues, ValidationIssue{n.UUID, fmt.Sprintf("parent_id %q does not exist", *n.ParentID)})
			}
		}
		if n.PrevID != nil {
			prev, ok := byID[*n.PrevID]
			if !ok {
				issues = append(issues, ValidationIssue{n.UUID, fmt.Sprintf("prev_id %q does not exist", *n.PrevID)})
			} else if !outline.PtrEqual(prev.ParentID, n.ParentID) {
				issues = append(issues, ValidationIssue{n.UUID, fmt.Sprintf("prev_id %q belongs to a different sibling group", *n.PrevID)})
			}
		}
	}

	// 1 & 2. sibling groups: exactly one head, no shared prev_id.
	groups := make(map[string][]*outline.Node) // key: parent uuid or "" for root
	for i := range nodes {
		key := ""
		if nodes[i].ParentID != nil {
			key = *nodes[i].ParentID
		}
		groups[key] = append(groups[key], &nodes[i])
	}
	for parentKey, group := range groups {
		heads := 0
		prevCounts := make(map[string]int)
		for _, n := range group {
			if n.PrevID == nil {
				heads++
			} else {
				prevCounts[*n.PrevID]++
			}
		}
		if heads == 0 {
			issues = append(issues, ValidationIssue{parentKey, "sibling group has no head"})
		} else if heads > 1 {
			issues = append(issues, ValidationIssue{parentKey, fmt.Sprintf("sibling group has %d heads", heads)})
		}
		for prevID, count := range prevCounts {
			if count > 1 {
				issues = append(issues, ValidationIssue{prevID, fmt.Sprintf("%d nodes share prev_id %q (fork)", count, prevID)})
			}
		}
	}

	// 4. cycle detection via parent-pointer walk with a visited set per node.
	for _, n := range nodes {
		seen := map[string]bool{n.UUID: true}
		cur := &n
		for cur.ParentID != nil {
			if seen[*cur.ParentID] {
				issues = append(issues, ValidationIssue{n.UUID, "cycle detected following parent_id"})
				break
			}
			seen[*cur.ParentID] = true
			parent, ok := byID[*cur.ParentID]
			if !ok {
				break // already reported above as a dangling reference
			}
			cur = parent
		}
	}

	// 5. node count == BFS-reachable count from the roots.
	var roots []*outline.Node
	for i := range nodes {
		if nodes[i].ParentID == nil {
			roots = append(roots, &nodes[i])
		}
	}
	reached := make(map[string]bool)
	queue := append([]*outline.Node{}, roots...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if reached[cur.UUID] {
			continue
		}
		reached[cur.UUID] = true
		for _, child := range children(nodes, cur.UUID) {
			queue = append(queue, child)
		}
	}
	if len(reached) != len(nodes) {
		var unreached []string
		for _, n := range nodes {
			if !reached[n.UUID] {
				unreached = append(unreached, n.UUID)
			}
		}
		sort.Strings(unreached)
		for _, id := range unreached {
			issues = append(issues, ValidationIssue{id, "not reachable from a root by parent/prev traversal"})
		}
	}

	return issues
}

func children(nodes []outline.Node, parentUUID string) []*outline.Node {
	var out []*outline.Node
	for i := range nodes {
		if nodes[i].ParentID != nil && *nodes[i].ParentID == parentUUID {
			out = append(out, &nodes[i])
		}
	}
	return out
}
