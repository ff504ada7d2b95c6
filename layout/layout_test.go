package layout

import (
	"errors"
	"testing"
)

func TestNewTree(t *testing.T) {
	tree := NewTree()

	leaves := tree.Leaves()
	if len(leaves) != 1 {
		t.Fatalf("Leaves() = %v, want one leaf", leaves)
	}
	if leaves[0] != 1 {
		t.Errorf("initial pane ID = %d, want 1", leaves[0])
	}

	id, ok := tree.FocusedID()
	if !ok || id != 1 {
		t.Errorf("FocusedID() = (%d, %v), want (1, true)", id, ok)
	}
}

func TestSplitFocused(t *testing.T) {
	tree := NewTree()

	fresh, err := tree.SplitFocused(Vertical)
	if err != nil {
		t.Fatal(err)
	}
	if fresh != 2 {
		t.Errorf("new pane ID = %d, want 2", fresh)
	}

	// The new pane takes focus.
	if id, _ := tree.FocusedID(); id != fresh {
		t.Errorf("FocusedID() = %d, want %d", id, fresh)
	}

	// Original pane stays first in traversal order.
	leaves := tree.Leaves()
	if len(leaves) != 2 || leaves[0] != 1 || leaves[1] != 2 {
		t.Errorf("Leaves() = %v, want [1 2]", leaves)
	}
}

func TestSplitIDsStrictlyIncrease(t *testing.T) {
	tree := NewTree()
	seen := map[PaneID]bool{1: true}
	var last PaneID = 1
	for i := 0; i < 10; i++ {
		id, err := tree.SplitFocused(Axis(i % 2))
		if err != nil {
			t.Fatal(err)
		}
		if id <= last {
			t.Fatalf("pane ID %d not greater than previous %d", id, last)
		}
		if seen[id] {
			t.Fatalf("pane ID %d reused", id)
		}
		seen[id] = true
		last = id
	}
}

func TestCloseFocused(t *testing.T) {
	tree := NewTree()
	if _, err := tree.SplitFocused(Vertical); err != nil {
		t.Fatal(err)
	}

	// Focused is pane 2; closing it focuses the sibling.
	closed, err := tree.CloseFocused()
	if err != nil {
		t.Fatal(err)
	}
	if closed != 2 {
		t.Errorf("closed ID = %d, want 2", closed)
	}
	if id, _ := tree.FocusedID(); id != 1 {
		t.Errorf("focus after close = %d, want 1", id)
	}
	if leaves := tree.Leaves(); len(leaves) != 1 {
		t.Errorf("Leaves() = %v, want one leaf", leaves)
	}
}

func TestCloseLastPane(t *testing.T) {
	tree := NewTree()
	if _, err := tree.CloseFocused(); !errors.Is(err, ErrCannotCloseLastPane) {
		t.Errorf("CloseFocused() err = %v, want ErrCannotCloseLastPane", err)
	}
	// Tree unchanged.
	if leaves := tree.Leaves(); len(leaves) != 1 || leaves[0] != 1 {
		t.Errorf("Leaves() = %v after refused close, want [1]", leaves)
	}
}

func TestSplitThenCloseRestoresSibling(t *testing.T) {
	// Split A, split again, close the focused pane: the sibling gets
	// focus and its viewport grows back.
	tree := NewTree()
	if _, err := tree.SplitFocused(Vertical); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.SplitFocused(Horizontal); err != nil {
		t.Fatal(err)
	}

	before := tree.Viewports(800, 600, 2)
	if len(before) != 3 {
		t.Fatalf("viewports = %d, want 3", len(before))
	}

	if _, err := tree.CloseFocused(); err != nil {
		t.Fatal(err)
	}
	after := tree.Viewports(800, 600, 2)
	if len(after) != 2 {
		t.Fatalf("viewports after close = %d, want 2", len(after))
	}

	// The sibling (pane 2) is focused and back to the full right half.
	id, _ := tree.FocusedID()
	if id != 2 {
		t.Errorf("focus after close = %d, want 2", id)
	}
	for _, vp := range after {
		if vp.PaneID == 2 && vp.H != 600 {
			t.Errorf("sibling height = %d, want full 600", vp.H)
		}
	}
}

func TestFocusCycle(t *testing.T) {
	tree := NewTree()
	for i := 0; i < 3; i++ {
		if _, err := tree.SplitFocused(Vertical); err != nil {
			t.Fatal(err)
		}
	}
	leaves := tree.Leaves()
	n := len(leaves)

	// FocusNext visits every pane exactly once per cycle and wraps.
	start, _ := tree.FocusedID()
	visited := map[PaneID]bool{start: true}
	for i := 0; i < n-1; i++ {
		if err := tree.FocusNext(); err != nil {
			t.Fatal(err)
		}
		id, _ := tree.FocusedID()
		if visited[id] {
			t.Fatalf("pane %d visited twice in one cycle", id)
		}
		visited[id] = true
	}
	if err := tree.FocusNext(); err != nil {
		t.Fatal(err)
	}
	if id, _ := tree.FocusedID(); id != start {
		t.Errorf("focus after full cycle = %d, want %d", id, start)
	}

	// FocusPrevious undoes FocusNext.
	if err := tree.FocusNext(); err != nil {
		t.Fatal(err)
	}
	if err := tree.FocusPrevious(); err != nil {
		t.Fatal(err)
	}
	if id, _ := tree.FocusedID(); id != start {
		t.Errorf("next then previous = %d, want %d", id, start)
	}
}

func TestFocusByID(t *testing.T) {
	tree := NewTree()
	if _, err := tree.SplitFocused(Vertical); err != nil {
		t.Fatal(err)
	}

	tree.Focus(1)
	if id, _ := tree.FocusedID(); id != 1 {
		t.Errorf("FocusedID() = %d, want 1", id)
	}

	// Unknown ID leaves nothing focused rather than picking arbitrarily.
	tree.Focus(99)
	if _, ok := tree.FocusedID(); ok {
		t.Error("focus moved to nonexistent pane")
	}
}

func TestSetRatio(t *testing.T) {
	tree := NewTree()
	if _, err := tree.SplitFocused(Vertical); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		ratio   float64
		wantErr error
	}{
		{"valid", 0.25, nil},
		{"zero", 0, ErrInvalidRatio},
		{"one", 1, ErrInvalidRatio},
		{"negative", -0.5, ErrInvalidRatio},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tree.SetRatio(tt.ratio)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SetRatio(%v) err = %v, want %v", tt.ratio, err, tt.wantErr)
			}
		})
	}

	// Ratio 0.25 of 800 width: left pane gets round(200)-1 = 199.
	vps := tree.Viewports(800, 600, 2)
	if vps[0].W != 199 {
		t.Errorf("left width = %d, want 199", vps[0].W)
	}
}

func TestSetRatioNoSplit(t *testing.T) {
	tree := NewTree()
	if err := tree.SetRatio(0.5); !errors.Is(err, ErrNoSplitOnAxis) {
		t.Errorf("SetRatio on single pane err = %v, want ErrNoSplitOnAxis", err)
	}
}

func TestGrowFocused(t *testing.T) {
	tree := NewTree()
	if _, err := tree.SplitFocused(Vertical); err != nil {
		t.Fatal(err)
	}

	// Focused is children[1]; growing it shrinks the ratio.
	if err := tree.GrowFocused(Vertical, 0.1); err != nil {
		t.Fatal(err)
	}
	vps := tree.Viewports(1000, 600, 0)
	if vps[1].W <= vps[0].W {
		t.Errorf("focused pane did not grow: widths %d vs %d", vps[0].W, vps[1].W)
	}

	// Growing on the missing axis is refused.
	if err := tree.GrowFocused(Horizontal, 0.1); !errors.Is(err, ErrNoSplitOnAxis) {
		t.Errorf("GrowFocused(Horizontal) err = %v, want ErrNoSplitOnAxis", err)
	}
}

func TestGrowFocusedClamps(t *testing.T) {
	tree := NewTree()
	if _, err := tree.SplitFocused(Vertical); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		if err := tree.GrowFocused(Vertical, 0.2); err != nil {
			t.Fatal(err)
		}
	}
	// Ratio clamps, so the unfocused pane keeps at least 10% of width.
	vps := tree.Viewports(1000, 600, 0)
	if vps[0].W < 90 {
		t.Errorf("unfocused pane width = %d, want >= 90 after clamping", vps[0].W)
	}
}

func TestAxisString(t *testing.T) {
	if Horizontal.String() != "horizontal" || Vertical.String() != "vertical" {
		t.Errorf("Axis strings = %q, %q", Horizontal.String(), Vertical.String())
	}
}
