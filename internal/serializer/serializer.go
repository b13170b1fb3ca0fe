// Package serializer implements the Container Serializer: the per-container
// single-writer that executes commands strictly in arrival order. Each
// container's Serializer is an actor — a goroutine draining its own command
// channel — so commands against distinct containers proceed independently
// and commands against the same container never interleave.
package serializer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/podlove/outliner/internal/db"
	"github.com/podlove/outliner/internal/eventbus"
	"github.com/podlove/outliner/internal/eventstore"
	"github.com/podlove/outliner/internal/mutator"
	"github.com/podlove/outliner/internal/outline"
	"github.com/podlove/outliner/internal/repo"
)

// AnalyzerQueue is the subset of internal/analyzer.Worker the Serializer
// needs: enqueue a content-scan job after a command that may have changed
// text. Declared as an interface so serializer tests
// don't need a real worker pool.
type AnalyzerQueue interface {
	Enqueue(containerID, nodeID, content string)
}

// request is one unit of work in flight through a Serializer's channel,
// paired with the channel its result is delivered on. work is a closure
// rather than a bare outline.Command so that Registry.SubmitCrossMove
// (internal/serializer/cross.go) can route a two-container mutation
// through one Serializer's loop without needing a synthetic type that
// satisfies the sealed outline.Command interface.
type request struct {
	work  func() (outline.Event, error)
	reply chan result
}

type result struct {
	event outline.Event
	err   error
}

// Serializer is the single-writer actor for one container. Commands are
// sent to its channel and processed strictly in the order received; it has
// no in-memory state beyond what's needed to run its loop: the sequence
// counter itself lives in the event store and is read fresh each commit, so
// a crashed and respawned Serializer picks up exactly where the log left
// off.
type Serializer struct {
	containerID string
	repo        repo.Repository
	events      *eventstore.Store
	bus         *eventbus.Bus
	analyzer    AnalyzerQueue

	reqCh chan request
	done  chan struct{}
}

// New builds a Serializer for containerID and starts its processing loop.
// Callers normally obtain one through a Registry rather than calling this
// directly.
func New(containerID string, repository repo.Repository, events *eventstore.Store, bus *eventbus.Bus, analyzer AnalyzerQueue) *Serializer {
	s := &Serializer{
		containerID: containerID,
		repo:        repository,
		events:      events,
		bus:         bus,
		analyzer:    analyzer,
		reqCh:       make(chan request),
		done:        make(chan struct{}),
	}
	go s.loop()
	return s
}

// Stop closes the request channel and waits for the loop to drain. Safe to
// call once; the Serializer must not be used afterward.
func (s *Serializer) Stop() {
	close(s.reqCh)
	<-s.done
}

// Submit hands cmd to the Serializer and blocks until it has been applied
// (or rejected). ctx governs only the wait for a reply — once the loop has
// popped a request off its channel and begun executing it, it runs to
// completion regardless of ctx; cancellation at that point is not honored.
func (s *Serializer) Submit(ctx context.Context, cmd outline.Command) (outline.Event, error) {
	return s.submit(ctx, func() (outline.Event, error) { return s.apply(context.WithoutCancel(ctx), cmd) })
}

// submit enqueues work and waits for its result. ctx governs only the wait
// for a reply — once the loop has popped a request off its channel and
// begun executing it, it runs to completion regardless of ctx; cancellation
// at that point is not honored.
func (s *Serializer) submit(ctx context.Context, work func() (outline.Event, error)) (outline.Event, error) {
	req := request{work: func() (outline.Event, error) {
		if err := ctx.Err(); err != nil {
			return outline.Event{}, fmt.Errorf("%w: %v", outline.ErrTimeout, err)
		}
		return work()
	}, reply: make(chan result, 1)}
	select {
	case s.reqCh <- req:
	case <-ctx.Done():
		return outline.Event{}, fmt.Errorf("%w: %v", outline.ErrTimeout, ctx.Err())
	}
	select {
	case r := <-req.reply:
		return r.event, r.err
	case <-ctx.Done():
		return outline.Event{}, fmt.Errorf("%w: %v", outline.ErrTimeout, ctx.Err())
	}
}

func (s *Serializer) loop() {
	defer close(s.done)
	for req := range s.reqCh {
		ev, err := req.work()
		req.reply <- result{event: ev, err: err}
	}
}

// apply is one full pass of the per-command loop: validate, load, mutate,
// persist, publish, and (for content changes) enqueue an analyzer job.
func (s *Serializer) apply(ctx context.Context, cmd outline.Command) (ev outline.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[serializer] container %s: panic applying %T: %v", s.containerID, cmd, r)
			err = fmt.Errorf("%w: panic: %v", outline.ErrTransient, r)
		}
	}()

	if err := outline.Validate(cmd); err != nil {
		return outline.Event{}, err
	}

	var (
		eventType   outline.EventType
		payload     any
		touchedIDs  []string // node ids whose content may have changed
		touchedText map[string]string
	)
	touchedText = make(map[string]string)

	txErr := s.repo.WithinTransaction(ctx, func(q *db.Queries) error {
		nodes, err := s.repo.ListByContainer(ctx, s.containerID)
		if err != nil {
			return err
		}
		snap := mutator.NewSnapshot(s.containerID, nodes)

		et, p, dirty, contentChanged, err := s.mutate(snap, cmd)
		if err != nil {
			return err
		}
		eventType, payload = et, p

		for _, n := range dirty {
			isNew := false
			if _, existed := findByUUID(nodes, n.UUID); !existed {
				isNew = true
			}
			if err := s.repo.PersistNode(ctx, q, n, isNew); err != nil {
				return fmt.Errorf("persist node %s: %w", n.UUID, err)
			}
		}
		for _, gone := range deletedUUIDs(nodes, snap) {
			if err := s.repo.DeleteNode(ctx, q, gone); err != nil {
				return fmt.Errorf("delete node %s: %w", gone, err)
			}
		}
		for _, n := range contentChanged {
			touchedIDs = append(touchedIDs, n.UUID)
			touchedText[n.UUID] = n.Content
		}

		base := cmd.Base()
		committed, err := s.events.Append(ctx, q, eventType, s.containerID, base.EventID, base.UserID, payload)
		if err != nil {
			return err
		}
		ev = committed
		return nil
	})
	if txErr != nil {
		if isNoOp(txErr) {
			return outline.Event{}, outline.ErrNoOp
		}
		if isValidationErr(txErr) {
			return outline.Event{}, txErr
		}
		log.Printf("[serializer] container %s: command %T failed: %v", s.containerID, cmd, txErr)
		return outline.Event{}, fmt.Errorf("%w: %v", outline.ErrConflict, txErr)
	}

	s.bus.Publish(ev)

	if s.analyzer != nil {
		for _, id := range touchedIDs {
			s.analyzer.Enqueue(s.containerID, id, touchedText[id])
		}
	}

	return ev, nil
}

func findByUUID(nodes []outline.Node, id string) (outline.Node, bool) {
	for _, n := range nodes {
		if n.UUID == id {
			return n, true
		}
	}
	return outline.Node{}, false
}

// deletedUUIDs reports which of the originally loaded nodes are no longer
// present in snap after mutation.
func deletedUUIDs(original []outline.Node, snap *mutator.Snapshot) []string {
	var out []string
	for _, n := range original {
		if _, ok := snap.Get(n.UUID); !ok {
			out = append(out, n.UUID)
		}
	}
	return out
}

func isNoOp(err error) bool { return errors.Is(err, outline.ErrNoOp) }

func isValidationErr(err error) bool {
	for _, target := range []error{
		outline.ErrNotFound, outline.ErrPositionNotFound, outline.ErrParentPrevInconsistent,
		outline.ErrCycle, outline.ErrCannotIndent, outline.ErrCannotOutdent, outline.ErrInvalidCommand,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// mutate exhaustively dispatches cmd to the Tree Mutator via a type switch
// over the command's concrete type, returning the event's type/payload,
// every node that needs re-persisting, and the subset of those whose
// Content actually changed — only those need a fresh analyzer job.
func (s *Serializer) mutate(snap *mutator.Snapshot, cmd outline.Command) (eventType outline.EventType, payload any, dirty, contentChanged []outline.Node, err error) {
	switch c := cmd.(type) {
	case outline.InsertNode:
		res, err := mutator.Insert(snap, c.ParentID, c.PrevID, c.Content, c.UUID, c.CreatorID)
		if err != nil {
			return "", nil, nil, nil, err
		}
		dirty := []outline.Node{*res.Node}
		if res.Next != nil {
			dirty = append(dirty, *res.Next)
		}
		payload := outline.NodeInsertedPayload{Node: *res.Node, Next: copyNode(res.Next), Content: c.Content, ContainerID: s.containerID}
		return outline.EventNodeInserted, payload, dirty, []outline.Node{*res.Node}, nil

	case outline.ChangeContent:
		node, ok := snap.Get(c.NodeID)
		if !ok {
			return "", nil, nil, nil, fmt.Errorf("%w: node %q", outline.ErrNotFound, c.NodeID)
		}
		node.Content = c.Content
		node.UpdatedAt = time.Now()
		payload := outline.NodeContentChangedPayload{NodeID: node.UUID, Content: node.Content, ContainerID: s.containerID}
		return outline.EventNodeContentChanged, payload, []outline.Node{*node}, []outline.Node{*node}, nil

	case outline.MoveNode:
		res, err := mutator.Move(snap, c.NodeID, c.ParentID, c.PrevID)
		if err != nil {
			return "", nil, nil, nil, err
		}
		et, p, d := nodeMovedEvent(s.containerID, res)
		return et, p, d, nil, nil

	case outline.MoveUp:
		res, err := mutator.MoveUp(snap, c.NodeID)
		if err != nil {
			return "", nil, nil, nil, err
		}
		et, p, d := nodeMovedEvent(s.containerID, res)
		return et, p, d, nil, nil

	case outline.MoveDown:
		res, err := mutator.MoveDown(snap, c.NodeID)
		if err != nil {
			return "", nil, nil, nil, err
		}
		et, p, d := nodeMovedEvent(s.containerID, res)
		return et, p, d, nil, nil

	case outline.Indent:
		res, err := mutator.Indent(snap, c.NodeID)
		if err != nil {
			return "", nil, nil, nil, err
		}
		et, p, d := nodeMovedEvent(s.containerID, res)
		return et, p, d, nil, nil

	case outline.Outdent:
		res, err := mutator.Outdent(snap, c.NodeID)
		if err != nil {
			return "", nil, nil, nil, err
		}
		et, p, d := nodeMovedEvent(s.containerID, res)
		return et, p, d, nil, nil

	case outline.SplitNode:
		res, err := mutator.Split(snap, c.NodeID, c.Selection.Start, c.Selection.Stop, c.NewUUID)
		if err != nil {
			return "", nil, nil, nil, err
		}
		dirty := []outline.Node{*res.Node, *res.Suffix}
		for _, child := range snap.All() {
			if child.ParentID != nil && *child.ParentID == res.Suffix.UUID {
				dirty = append(dirty, child)
			}
		}
		payload := outline.NodeInsertedPayload{Node: *res.Suffix, Content: res.Suffix.Content, ContainerID: s.containerID}
		return outline.EventNodeInserted, payload, dirty, []outline.Node{*res.Node, *res.Suffix}, nil

	case outline.MergePrev:
		res, err := mutator.MergePrev(snap, c.NodeID)
		if err != nil {
			return "", nil, nil, nil, err
		}
		et, p, d := mergeEvent(s.containerID, res)
		return et, p, d, []outline.Node{*res.Node}, nil

	case outline.MergeNext:
		res, err := mutator.MergeNext(snap, c.NodeID)
		if err != nil {
			return "", nil, nil, nil, err
		}
		et, p, d := mergeEvent(s.containerID, res)
		return et, p, d, []outline.Node{*res.Node}, nil

	case outline.DeleteNode:
		res, err := mutator.Delete(snap, c.NodeID)
		if err != nil {
			return "", nil, nil, nil, err
		}
		dirty := append([]outline.Node{}, res.Children...)
		if res.Next != nil {
			dirty = append(dirty, *res.Next)
		}
		payload := outline.NodeDeletedPayload{
			Node: res.Deleted, Children: res.Children, Next: copyNode(res.Next), ContainerID: s.containerID,
		}
		return outline.EventNodeDeleted, payload, dirty, nil, nil

	default:
		return "", nil, nil, nil, fmt.Errorf("%w: command %T is not a single-container command", outline.ErrInvalidCommand, cmd)
	}
}

func nodeMovedEvent(containerID string, res *mutator.MoveResult) (outline.EventType, any, []outline.Node) {
	dirty := []outline.Node{*res.Node}
	if res.Next != nil {
		dirty = append(dirty, *res.Next)
	}
	if res.OldNext != nil {
		dirty = append(dirty, *res.OldNext)
	}
	payload := outline.NodeMovedPayload{
		Node: *res.Node, Next: copyNode(res.Next), OldPrev: copyNode(res.OldPrev), OldNext: copyNode(res.OldNext),
		ContainerID: containerID,
	}
	return outline.EventNodeMoved, payload, dirty
}

func mergeEvent(containerID string, res *mutator.MergeResult) (outline.EventType, any, []outline.Node) {
	dirty := append([]outline.Node{*res.Node}, res.ReparentedChildren...)
	if res.AfterNext != nil {
		dirty = append(dirty, *res.AfterNext)
	}
	payload := outline.NodeDeletedPayload{
		Node: *res.Deleted, Children: res.ReparentedChildren, ContainerID: containerID,
		Survivor: copyNode(res.Node),
	}
	return outline.EventNodeDeleted, payload, dirty
}

func copyNode(n *outline.Node) *outline.Node {
	if n == nil {
		return nil
	}
	cp := *n
	return &cp
}
