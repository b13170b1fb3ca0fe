// Package dispatcher implements the Command Dispatcher: the public surface
// of the engine. It identifies the container a command
// belongs to, enforces the command's total deadline before it ever reaches
// a Serializer's queue, and routes it to that container's Serializer.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/podlove/outliner/internal/outline"
	"github.com/podlove/outliner/internal/repo"
	"github.com/podlove/outliner/internal/serializer"
)

// Dispatcher never mutates state itself; every command it accepts is
// resolved to a container id and handed to that container's Serializer.
type Dispatcher struct {
	registry *serializer.Registry
	repo     repo.Repository
	timeout  time.Duration
}

// New builds a Dispatcher. timeout is the command's default total
// deadline, enforced by the Dispatcher itself; timeout <= 0 disables it.
func New(registry *serializer.Registry, repository repo.Repository, timeout time.Duration) *Dispatcher {
	return &Dispatcher{registry: registry, repo: repository, timeout: timeout}
}

// Dispatch resolves cmd's owning container and submits it, honoring the
// Dispatcher's deadline. Cross-container commands (MoveNodeToContainer,
// MoveNodesToContainer) are routed through Registry.SubmitCrossMove instead
// of a single container's Submit, since they touch two containers under
// lock-ordered discipline.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd outline.Command) (outline.Event, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	containerID, err := d.resolveContainer(ctx, cmd)
	if err != nil {
		return outline.Event{}, err
	}

	switch cmd.(type) {
	case outline.MoveNodeToContainer, outline.MoveNodesToContainer:
		return d.registry.SubmitCrossMove(ctx, containerID, cmd)
	default:
		return d.registry.Get(containerID).Submit(ctx, cmd)
	}
}

// resolveContainer identifies the owning container: InsertNode carries it
// directly via container_id, every other command carries a node_id whose
// owning node must be loaded to find it.
func (d *Dispatcher) resolveContainer(ctx context.Context, cmd outline.Command) (string, error) {
	switch c := cmd.(type) {
	case outline.InsertNode:
		if c.ContainerID == "" {
			return "", fmt.Errorf("%w: InsertNode missing container_id", outline.ErrInvalidCommand)
		}
		return c.ContainerID, nil
	case outline.MoveNodeToContainer:
		return d.containerOf(ctx, c.NodeID)
	case outline.MoveNodesToContainer:
		if len(c.NodeIDs) == 0 {
			return "", fmt.Errorf("%w: MoveNodesToContainer missing node_ids", outline.ErrInvalidCommand)
		}
		return d.containerOf(ctx, c.NodeIDs[0])
	case outline.ChangeContent:
		return d.containerOf(ctx, c.NodeID)
	case outline.MoveNode:
		return d.containerOf(ctx, c.NodeID)
	case outline.MoveUp:
		return d.containerOf(ctx, c.NodeID)
	case outline.MoveDown:
		return d.containerOf(ctx, c.NodeID)
	case outline.Indent:
		return d.containerOf(ctx, c.NodeID)
	case outline.Outdent:
		return d.containerOf(ctx, c.NodeID)
	case outline.SplitNode:
		return d.containerOf(ctx, c.NodeID)
	case outline.MergePrev:
		return d.containerOf(ctx, c.NodeID)
	case outline.MergeNext:
		return d.containerOf(ctx, c.NodeID)
	case outline.DeleteNode:
		return d.containerOf(ctx, c.NodeID)
	default:
		return "", fmt.Errorf("%w: unrecognized command type %T", outline.ErrInvalidCommand, cmd)
	}
}

func (d *Dispatcher) containerOf(ctx context.Context, nodeID string) (string, error) {
	n, err := d.repo.Get(ctx, nodeID)
	if err != nil {
		return "", err
	}
	return n.ContainerID, nil
}
