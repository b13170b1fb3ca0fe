// Package outline holds the data model and command/event vocabulary for the
// collaborative outline engine: containers, nodes, URL records, commands and
// events. It has no dependency on storage or transport — those live in
// internal/db, internal/repo, internal/eventstore and internal/eventbus.
package outline

import "time"

// Node is the fundamental unit of an outline tree: one line of content with
// parent/sibling pointers expressed as identifier references, never as
// structural pointers — an arena-plus-index model rather than back-pointers
// held by value.
type Node struct {
	UUID        string
	Content     string
	ContainerID string
	ParentID    *string // nil at root level
	PrevID      *string // nil if first child under its parent
	CreatorID   string
	URLs        []URLRecord
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.ParentID == nil }

// IsHead reports whether the node is the first child of its sibling group.
func (n *Node) IsHead() bool { return n.PrevID == nil }

// URLRecord is a single URL extracted from a node's content, enriched
// asynchronously by the analyzer worker.
type URLRecord struct {
	StartBytes int
	SizeBytes  int
	URL        string
	NodeID     string
	Metadata   map[string]any // nil until enrichment succeeds
}

// Container is an opaque scope owning exactly one outline tree. The
// engine treats it as an identifier; ownership and lifecycle (episode,
// show, inbox) are the caller's concern.
type Container struct {
	ID string
}

// strPtr is a small helper used throughout the package and its callers to
// build *string literals inline.
func strPtr(s string) *string { return &s }

// StringPtr returns a pointer to s. Exported for callers building commands.
func StringPtr(s string) *string { return strPtr(s) }

// PtrEqual reports whether two *string both are nil, or both non-nil with the
// same value. Used by the mutator and validator when comparing parent/prev
// references.
func PtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
