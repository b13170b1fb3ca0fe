package mutator

import (
	"errors"
	"testing"

	"github.com/podlove/outliner/internal/outline"
)

func TestMoveAcrossContainersRelinksBothChains(t *testing.T) {
	src := NewSnapshot("inbox", nil)
	Insert(src, nil, nil, "a", "A", "u1")
	Insert(src, nil, sp("A"), "b", "B", "u1")

	dst := NewSnapshot("episode", nil)
	Insert(dst, nil, nil, "x", "X", "u1")

	res, err := MoveAcrossContainers(src, dst, "A", nil, nil)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if res.OldNext == nil || res.OldNext.UUID != "B" {
		t.Fatalf("oldNext = %+v, want B", res.OldNext)
	}
	if res.Next == nil || res.Next.UUID != "X" {
		t.Fatalf("next = %+v, want X", res.Next)
	}
	if res.Node.ContainerID != "episode" {
		t.Fatalf("container_id = %q, want episode", res.Node.ContainerID)
	}

	if b, _ := src.Get("B"); b.PrevID != nil {
		t.Fatalf("B.prev_id = %v, want nil (became head)", b.PrevID)
	}
	if issues := ValidateContainer(src.All()); len(issues) != 0 {
		t.Fatalf("src invariants: %v", issues)
	}
	if issues := ValidateContainer(dst.All()); len(issues) != 0 {
		t.Fatalf("dst invariants: %v", issues)
	}
}

func TestMoveAcrossContainersCarriesDescendants(t *testing.T) {
	src := NewSnapshot("inbox", nil)
	Insert(src, nil, nil, "a", "A", "u1")
	Insert(src, sp("A"), nil, "a1", "A1", "u1")
	Insert(src, sp("A1"), nil, "a1a", "A1A", "u1")
	Insert(src, nil, sp("A"), "b", "B", "u1")

	dst := NewSnapshot("episode", nil)
	Insert(dst, nil, nil, "x", "X", "u1")

	res, err := MoveAcrossContainers(src, dst, "A", nil, nil)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if len(res.Descendants) != 2 {
		t.Fatalf("descendants = %d, want 2", len(res.Descendants))
	}

	if _, ok := src.Get("A1"); ok {
		t.Fatalf("A1 still present in src after move")
	}
	if _, ok := src.Get("A1A"); ok {
		t.Fatalf("A1A still present in src after move")
	}

	a1, ok := dst.Get("A1")
	if !ok {
		t.Fatalf("A1 missing from dst after move")
	}
	if a1.ContainerID != "episode" {
		t.Fatalf("A1.container_id = %q, want episode", a1.ContainerID)
	}
	if a1.ParentID == nil || *a1.ParentID != "A" {
		t.Fatalf("A1.parent_id = %v, want A", a1.ParentID)
	}
	a1a, ok := dst.Get("A1A")
	if !ok {
		t.Fatalf("A1A missing from dst after move")
	}
	if a1a.ContainerID != "episode" {
		t.Fatalf("A1A.container_id = %q, want episode", a1a.ContainerID)
	}

	if issues := ValidateContainer(src.All()); len(issues) != 0 {
		t.Fatalf("src invariants: %v", issues)
	}
	if issues := ValidateContainer(dst.All()); len(issues) != 0 {
		t.Fatalf("dst invariants: %v", issues)
	}
}

func TestMoveManyAcrossContainersCarriesDescendants(t *testing.T) {
	src := NewSnapshot("inbox", nil)
	Insert(src, nil, nil, "a", "A", "u1")
	Insert(src, sp("A"), nil, "a1", "A1", "u1")

	dst := NewSnapshot("episode", nil)

	res, err := MoveManyAcrossContainers(src, dst, []string{"A"})
	if err != nil {
		t.Fatalf("batch move: %v", err)
	}
	if len(res.Descendants) != 1 || res.Descendants[0].UUID != "A1" {
		t.Fatalf("descendants = %+v, want [A1]", res.Descendants)
	}
	a1, ok := dst.Get("A1")
	if !ok {
		t.Fatalf("A1 missing from dst after batch move")
	}
	if a1.ContainerID != "episode" {
		t.Fatalf("A1.container_id = %q, want episode", a1.ContainerID)
	}

	if issues := ValidateContainer(src.All()); len(issues) != 0 {
		t.Fatalf("src invariants: %v", issues)
	}
	if issues := ValidateContainer(dst.All()); len(issues) != 0 {
		t.Fatalf("dst invariants: %v", issues)
	}
}

func TestMoveAcrossContainersRejectsMissingDestinationParent(t *testing.T) {
	src := NewSnapshot("inbox", nil)
	Insert(src, nil, nil, "a", "A", "u1")
	dst := NewSnapshot("episode", nil)

	if _, err := MoveAcrossContainers(src, dst, "A", sp("missing"), nil); !errors.Is(err, outline.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMoveManyAcrossContainersAppendsAtRootInOrder(t *testing.T) {
	src := NewSnapshot("inbox", nil)
	Insert(src, nil, nil, "a", "A", "u1")
	Insert(src, nil, sp("A"), "b", "B", "u1")
	Insert(src, nil, sp("B"), "c", "C", "u1")

	dst := NewSnapshot("episode", nil)
	Insert(dst, nil, nil, "x", "X", "u1")

	res, err := MoveManyAcrossContainers(src, dst, []string{"A", "C"})
	if err != nil {
		t.Fatalf("batch move: %v", err)
	}
	if len(res.Nodes) != 2 {
		t.Fatalf("moved = %d, want 2", len(res.Nodes))
	}

	x, _ := dst.Get("X")
	a, _ := dst.Get("A")
	c, _ := dst.Get("C")
	if x.PrevID != nil {
		t.Fatalf("X.prev_id = %v, want nil", x.PrevID)
	}
	if a.PrevID == nil || *a.PrevID != "X" {
		t.Fatalf("A.prev_id = %v, want X", a.PrevID)
	}
	if c.PrevID == nil || *c.PrevID != "A" {
		t.Fatalf("C.prev_id = %v, want A", c.PrevID)
	}
	if a.ParentID != nil || c.ParentID != nil {
		t.Fatalf("moved nodes must land at destination root")
	}

	// B stayed behind in src and is now the sole remaining node there.
	if issues := ValidateContainer(src.All()); len(issues) != 0 {
		t.Fatalf("src invariants: %v", issues)
	}
	if issues := ValidateContainer(dst.All()); len(issues) != 0 {
		t.Fatalf("dst invariants: %v", issues)
	}
}
