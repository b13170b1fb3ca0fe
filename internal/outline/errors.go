package outline

import "errors"

// Error kinds propagated to the command caller. Validation errors are
// synchronous; analyzer errors never surface this way — analyzer failure is
// always recoverable and stays internal to the worker.
var (
	// ErrNotFound is returned when a referenced node, container, or
	// sibling-chain position does not exist.
	ErrNotFound = errors.New("outline: not found")

	// ErrPositionNotFound is NotFound specialized to a prev_id reference
	// that names no node in the expected sibling group.
	ErrPositionNotFound = errors.New("outline: position not found")

	// ErrParentPrevInconsistent is returned when prev_id belongs to a
	// different sibling group than parent_id.
	ErrParentPrevInconsistent = errors.New("outline: parent/prev inconsistent")

	// ErrCycle is returned when a proposed move would place a node under
	// its own descendant.
	ErrCycle = errors.New("outline: cycle")

	// ErrCannotIndent is returned when Indent is attempted on a node with
	// no previous sibling.
	ErrCannotIndent = errors.New("outline: cannot indent")

	// ErrCannotOutdent is returned when Outdent is attempted on a root
	// node.
	ErrCannotOutdent = errors.New("outline: cannot outdent")

	// ErrNoOp signals a move to the node's current position. This is not
	// an error for the caller — it conveys that no event was emitted, and
	// callers may rely on idempotence.
	ErrNoOp = errors.New("outline: no-op")

	// ErrConflict is returned when the underlying store detects a
	// concurrent modification; the caller may retry.
	ErrConflict = errors.New("outline: conflict")

	// ErrTimeout is returned when a command does not reach the head of
	// its container's serializer queue before its deadline.
	ErrTimeout = errors.New("outline: timeout")

	// ErrTransient is returned for transport/infrastructure failures the
	// caller may retry idempotently using the same event_id and uuid.
	ErrTransient = errors.New("outline: transient error")

	// ErrInvalidCommand is returned when a command fails structural
	// validation before it is ever handed to the tree mutator.
	ErrInvalidCommand = errors.New("outline: invalid command")
)
