package serializer

import (
	"context"
	"fmt"

	"github.com/podlove/outliner/internal/db"
	"github.com/podlove/outliner/internal/mutator"
	"github.com/podlove/outliner/internal/outline"
)

// AcquirePair orders two container ids lexically and returns their
// Serializers in that order — the lock-ordering discipline a
// multi-container command needs: acquire both container serializers in
// container_id order to prevent deadlock.
func (r *Registry) AcquirePair(containerA, containerB string) (first, second *Serializer) {
	a, b := r.Get(containerA), r.Get(containerB)
	if containerA <= containerB {
		return a, b
	}
	return b, a
}

// crossMove carries the routing data a cross-container mutation needs on
// top of the wrapped command.
type crossMove struct {
	cmd      outline.Command
	sourceID string
	targetID string
}

// SubmitCrossMove executes a MoveNodeToContainer or MoveNodesToContainer
// command. It picks the lexically lower of the two container ids and
// funnels the mutation through that container's Serializer loop — since
// every cross-container command for an unordered pair resolves to the
// same owner, this is sufficient mutual exclusion without a second round
// trip through the other Serializer, and without ever needing to hold two
// locks at once.
func (r *Registry) SubmitCrossMove(ctx context.Context, sourceContainerID string, cmd outline.Command) (outline.Event, error) {
	targetContainerID, err := crossMoveTarget(cmd)
	if err != nil {
		return outline.Event{}, err
	}

	lowID := sourceContainerID
	if targetContainerID < lowID {
		lowID = targetContainerID
	}
	owner := r.Get(lowID)

	cm := crossMove{cmd: cmd, sourceID: sourceContainerID, targetID: targetContainerID}
	return owner.submit(ctx, func() (outline.Event, error) { return owner.applyCross(context.WithoutCancel(ctx), cm) })
}

func crossMoveTarget(cmd outline.Command) (string, error) {
	switch c := cmd.(type) {
	case outline.MoveNodeToContainer:
		return c.TargetContainerID, nil
	case outline.MoveNodesToContainer:
		return c.TargetContainerID, nil
	default:
		return "", fmt.Errorf("%w: %T is not a cross-container command", outline.ErrInvalidCommand, cmd)
	}
}

// applyCross performs the two-container mutation. It runs on the owning
// Serializer's single loop goroutine, so it never races with any other
// command against either container as long as every cross-container
// command for this pair is submitted through Registry.SubmitCrossMove.
func (s *Serializer) applyCross(ctx context.Context, cm crossMove) (outline.Event, error) {
	if err := outline.Validate(cm.cmd); err != nil {
		return outline.Event{}, err
	}

	var ev outline.Event
	var touched []outline.Node

	txErr := s.repo.WithinTransaction(ctx, func(q *db.Queries) error {
		srcNodes, err := s.repo.ListByContainer(ctx, cm.sourceID)
		if err != nil {
			return err
		}
		dstNodes, err := s.repo.ListByContainer(ctx, cm.targetID)
		if err != nil {
			return err
		}
		src := mutator.NewSnapshot(cm.sourceID, srcNodes)
		dst := mutator.NewSnapshot(cm.targetID, dstNodes)

		var eventType outline.EventType
		var payload any

		switch c := cm.cmd.(type) {
		case outline.MoveNodeToContainer:
			res, err := mutator.MoveAcrossContainers(src, dst, c.NodeID, c.ParentID, c.PrevID)
			if err != nil {
				return err
			}
			touched = append(touched, *res.Node)
			if res.OldNext != nil {
				touched = append(touched, *res.OldNext)
			}
			if res.Next != nil {
				touched = append(touched, *res.Next)
			}
			for _, d := range res.Descendants {
				touched = append(touched, *d)
			}
			children := make([]outline.Node, len(res.Descendants))
			for i, d := range res.Descendants {
				children[i] = *d
			}
			eventType = outline.EventNodeMovedToContainer
			payload = outline.NodeMovedToNewContainerPayload{
				Node: *res.Node, OldContainerID: cm.sourceID, NewContainerID: cm.targetID,
				Next: copyNode(res.Next), OldNext: copyNode(res.OldNext),
				Children: children,
			}

		case outline.MoveNodesToContainer:
			res, err := mutator.MoveManyAcrossContainers(src, dst, c.NodeIDs)
			if err != nil {
				return err
			}
			nodes := make([]outline.Node, len(res.Nodes))
			for i, n := range res.Nodes {
				nodes[i] = *n
				touched = append(touched, *n)
			}
			for _, d := range res.Descendants {
				touched = append(touched, *d)
			}
			descendants := make([]outline.Node, len(res.Descendants))
			for i, d := range res.Descendants {
				descendants[i] = *d
			}
			eventType = outline.EventNodesMovedToContainer
			payload = outline.NodesMovedToContainerPayload{
				Nodes: nodes, Descendants: descendants, OldContainerID: cm.sourceID, NewContainerID: cm.targetID,
			}

		default:
			return fmt.Errorf("%w: %T is not a cross-container command", outline.ErrInvalidCommand, cm.cmd)
		}

		for _, n := range touched {
			_, existedInSrc := findByUUID(srcNodes, n.UUID)
			_, existedInDst := findByUUID(dstNodes, n.UUID)
			isNew := !existedInSrc && !existedInDst
			if err := s.repo.PersistNode(ctx, q, n, isNew); err != nil {
				return fmt.Errorf("persist node %s: %w", n.UUID, err)
			}
		}

		base := cm.cmd.Base()
		committed, err := s.events.Append(ctx, q, eventType, cm.targetID, base.EventID, base.UserID, payload)
		if err != nil {
			return err
		}
		ev = committed
		return nil
	})
	if txErr != nil {
		return outline.Event{}, fmt.Errorf("%w: %v", outline.ErrConflict, txErr)
	}

	s.bus.Publish(ev)
	if s.analyzer != nil {
		for _, n := range touched {
			s.analyzer.Enqueue(cm.targetID, n.UUID, n.Content)
		}
	}
	return ev, nil
}

