package outline

import (
	"fmt"
	"strings"
)

// Command is the tagged-union input to the engine. Every concrete command
// type below implements it; Dispatcher and Serializer exhaustively
// type-switch on it rather than relying on structural typing, since new
// variants are expected to be added over time.
type Command interface {
	// isCommand is unexported so Command can only be implemented by the
	// variants declared in this file.
	isCommand()
	// Base returns the fields common to every command.
	Base() CommandBase
}

// CommandBase carries the fields every command variant has in common.
type CommandBase struct {
	EventID string // "<uuid>:<originator>" — see ParseEventID
	UserID  string
}

func (b CommandBase) Base() CommandBase { return b }

// ParseEventID splits the composite event_id into its uuid and originator
// (session) parts, the convention used for echo suppression.
func ParseEventID(eventID string) (uuid, originator string, ok bool) {
	idx := strings.LastIndexByte(eventID, ':')
	if idx < 0 || idx == len(eventID)-1 {
		return "", "", false
	}
	return eventID[:idx], eventID[idx+1:], true
}

// InsertNode creates a new node at the given sibling-chain position.
type InsertNode struct {
	CommandBase
	UUID        string
	ContainerID string
	ParentID    *string
	PrevID      *string
	Content     string
	CreatorID   string
}

func (InsertNode) isCommand() {}

// ChangeContent replaces a node's content.
type ChangeContent struct {
	CommandBase
	NodeID  string
	Content string
}

func (ChangeContent) isCommand() {}

// MoveNode repositions a node within its current container.
type MoveNode struct {
	CommandBase
	NodeID   string
	ParentID *string
	PrevID   *string
}

func (MoveNode) isCommand() {}

// MoveNodeToContainer moves a single node across containers.
type MoveNodeToContainer struct {
	CommandBase
	NodeID            string
	TargetContainerID string
	ParentID          *string
	PrevID            *string
}

func (MoveNodeToContainer) isCommand() {}

// MoveNodesToContainer batch-moves nodes across containers, each becoming a
// root-level node (in order) at the destination's tail.
type MoveNodesToContainer struct {
	CommandBase
	NodeIDs           []string
	TargetContainerID string
}

func (MoveNodesToContainer) isCommand() {}

// MoveUp swaps a node with its immediate previous sibling.
type MoveUp struct {
	CommandBase
	NodeID string
}

func (MoveUp) isCommand() {}

// MoveDown swaps a node with its immediate next sibling.
type MoveDown struct {
	CommandBase
	NodeID string
}

func (MoveDown) isCommand() {}

// Indent reparents a node under its previous sibling, as that sibling's last
// child.
type Indent struct {
	CommandBase
	NodeID string
}

func (Indent) isCommand() {}

// Outdent reparents a node to its grandparent, inserted after its current
// parent.
type Outdent struct {
	CommandBase
	NodeID string
}

func (Outdent) isCommand() {}

// Selection names a byte range [Start, Stop) within a node's content.
type Selection struct {
	Start int
	Stop  int
}

// SplitNode splits content at Stop; the suffix becomes a new sibling
// immediately after the node. The prefix [0, Start) is kept on the
// original node — anything in [Start, Stop) is discarded, matching a
// selection the editor is replacing with a line break.
type SplitNode struct {
	CommandBase
	NodeID    string
	Selection Selection
	// NewUUID is the uuid assigned to the suffix node. Callers supply it
	// so retries are idempotent.
	NewUUID string
}

func (SplitNode) isCommand() {}

// MergePrev prepends the previous sibling's content onto the node's and
// deletes that sibling; the node itself survives.
type MergePrev struct {
	CommandBase
	NodeID string
}

func (MergePrev) isCommand() {}

// MergeNext concatenates a node's next sibling's content onto it and
// deletes the next sibling.
type MergeNext struct {
	CommandBase
	NodeID string
}

func (MergeNext) isCommand() {}

// DeleteNode removes a node; its children reparent to the node's former
// parent, preserving order.
type DeleteNode struct {
	CommandBase
	NodeID string
}

func (DeleteNode) isCommand() {}

// Validate performs the structural validation the Serializer runs before
// loading anything from the repository. It rejects commands with missing
// identifiers; semantic checks (does the node exist, would this create a
// cycle) happen once the subtree is loaded.
func Validate(cmd Command) error {
	base := cmd.Base()
	if base.EventID == "" {
		return fmt.Errorf("%w: empty event_id", ErrInvalidCommand)
	}
	if _, _, ok := ParseEventID(base.EventID); !ok {
		return fmt.Errorf("%w: event_id %q is not of the form <uuid>:<originator>", ErrInvalidCommand, base.EventID)
	}
	if base.UserID == "" {
		return fmt.Errorf("%w: empty user_id", ErrInvalidCommand)
	}

	switch c := cmd.(type) {
	case InsertNode:
		if c.UUID == "" {
			return fmt.Errorf("%w: InsertNode missing uuid", ErrInvalidCommand)
		}
		if c.ContainerID == "" {
			return fmt.Errorf("%w: InsertNode missing container_id", ErrInvalidCommand)
		}
		if c.CreatorID == "" {
			return fmt.Errorf("%w: InsertNode missing creator_id", ErrInvalidCommand)
		}
	case ChangeContent:
		if c.NodeID == "" {
			return fmt.Errorf("%w: ChangeContent missing node_id", ErrInvalidCommand)
		}
	case MoveNode:
		if c.NodeID == "" {
			return fmt.Errorf("%w: MoveNode missing node_id", ErrInvalidCommand)
		}
	case MoveNodeToContainer:
		if c.NodeID == "" || c.TargetContainerID == "" {
			return fmt.Errorf("%w: MoveNodeToContainer missing node_id or target_container_id", ErrInvalidCommand)
		}
	case MoveNodesToContainer:
		if len(c.NodeIDs) == 0 || c.TargetContainerID == "" {
			return fmt.Errorf("%w: MoveNodesToContainer missing node_ids or target_container_id", ErrInvalidCommand)
		}
	case MoveUp:
		if c.NodeID == "" {
			return fmt.Errorf("%w: MoveUp missing node_id", ErrInvalidCommand)
		}
	case MoveDown:
		if c.NodeID == "" {
			return fmt.Errorf("%w: MoveDown missing node_id", ErrInvalidCommand)
		}
	case Indent:
		if c.NodeID == "" {
			return fmt.Errorf("%w: Indent missing node_id", ErrInvalidCommand)
		}
	case Outdent:
		if c.NodeID == "" {
			return fmt.Errorf("%w: Outdent missing node_id", ErrInvalidCommand)
		}
	case SplitNode:
		if c.NodeID == "" || c.NewUUID == "" {
			return fmt.Errorf("%w: SplitNode missing node_id or new uuid", ErrInvalidCommand)
		}
		if c.Selection.Start < 0 || c.Selection.Stop < c.Selection.Start {
			return fmt.Errorf("%w: SplitNode selection %+v invalid", ErrInvalidCommand, c.Selection)
		}
	case MergePrev:
		if c.NodeID == "" {
			return fmt.Errorf("%w: MergePrev missing node_id", ErrInvalidCommand)
		}
	case MergeNext:
		if c.NodeID == "" {
			return fmt.Errorf("%w: MergeNext missing node_id", ErrInvalidCommand)
		}
	case DeleteNode:
		if c.NodeID == "" {
			return fmt.Errorf("%w: DeleteNode missing node_id", ErrInvalidCommand)
		}
	default:
		return fmt.Errorf("%w: unrecognized command type %T", ErrInvalidCommand, cmd)
	}
	return nil
}
