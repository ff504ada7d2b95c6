// Package layout implements the pane layout tree: a recursive binary
// partition of the window into terminal panes.
//
// The tree owns geometry and focus state only; it holds no pixels and no
// terminal state. A Node is either a leaf (one pane) or a split with
// exactly two children. Nodes carry no parent pointers, so the structure
// is acyclic by construction and ownership is single-parent.
//
// Thread safety: Tree is NOT safe for concurrent use. It is owned by the
// engine and mutated only through its split/close/focus/resize operations.
package layout

import (
	"errors"
	"math"
)

// Tree operation errors. These are API-contract violations: the operation
// is rejected and the tree is left unchanged.
var (
	// ErrNoFocusedPane is returned when an operation requires a focused
	// leaf and the tree has none.
	ErrNoFocusedPane = errors.New("layout: no focused pane")

	// ErrCannotCloseLastPane is returned by CloseFocused when the focused
	// leaf is the only leaf in the tree.
	ErrCannotCloseLastPane = errors.New("layout: cannot close last pane")

	// ErrInvalidRatio is returned when a split ratio falls outside (0, 1).
	ErrInvalidRatio = errors.New("layout: split ratio must be in (0, 1)")

	// ErrNoSplitOnAxis is returned by GrowFocused when no enclosing split
	// exists on the requested axis.
	ErrNoSplitOnAxis = errors.New("layout: no enclosing split on axis")
)

// PaneID identifies a pane for the lifetime of its tree.
type PaneID uint64

// Axis is the orientation of the divider between a split's two children.
type Axis int

const (
	// Horizontal is a horizontal divider: the children are stacked and
	// the split distributes the parent's height.
	Horizontal Axis = iota

	// Vertical is a vertical divider: the children sit side by side and
	// the split distributes the parent's width.
	Vertical
)

// String returns the string representation of the axis.
func (a Axis) String() string {
	if a == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// Node is one node of the layout tree: either a leaf holding a pane or a
// split holding two children. Exactly one of leaf and split is non-nil.
type Node struct {
	leaf  *leafNode
	split *splitNode
}

type leafNode struct {
	id      PaneID
	focused bool
}

type splitNode struct {
	axis Axis
	// ratio is the fraction of the parent extent allocated to children[0]
	// along the split axis. Always in (0, 1).
	ratio    float64
	children [2]*Node
}

// IsLeaf reports whether the node is a leaf.
func (n *Node) IsLeaf() bool { return n.leaf != nil }

// Tree manages the pane hierarchy and focus state.
type Tree struct {
	root   *Node
	nextID PaneID
}

// NewTree creates a tree with a single focused leaf. The initial pane has
// ID 1; subsequent panes receive strictly increasing IDs.
func NewTree() *Tree {
	t := &Tree{nextID: 1}
	t.root = &Node{leaf: &leafNode{id: t.allocID(), focused: true}}
	return t
}

func (t *Tree) allocID() PaneID {
	id := t.nextID
	t.nextID++
	return id
}

// Leaves returns the pane IDs of all leaves in traversal order
// (children[0] before children[1] at every split).
func (t *Tree) Leaves() []PaneID {
	var ids []PaneID
	walkLeaves(t.root, func(l *leafNode) {
		ids = append(ids, l.id)
	})
	return ids
}

// FocusedID returns the ID of the focused leaf and true, or 0 and false
// if no leaf is focused.
func (t *Tree) FocusedID() (PaneID, bool) {
	var id PaneID
	found := false
	walkLeaves(t.root, func(l *leafNode) {
		if l.focused {
			id = l.id
			found = true
		}
	})
	return id, found
}

func walkLeaves(n *Node, fn func(*leafNode)) {
	if n == nil {
		return
	}
	if n.leaf != nil {
		fn(n.leaf)
		return
	}
	walkLeaves(n.split.children[0], fn)
	walkLeaves(n.split.children[1], fn)
}

// SplitFocused replaces the focused leaf with a split on the given axis.
// The original leaf becomes children[0], a freshly created leaf becomes
// children[1], the ratio defaults to 0.5, and focus moves to the new
// leaf. The new pane's ID is returned; the caller is responsible for
// attaching a terminal to it.
func (t *Tree) SplitFocused(axis Axis) (PaneID, error) {
	node := t.findFocused(t.root)
	if node == nil {
		return 0, ErrNoFocusedPane
	}

	old := node.leaf
	old.focused = false
	fresh := &leafNode{id: t.allocID(), focused: true}

	node.leaf = nil
	node.split = &splitNode{
		axis:  axis,
		ratio: 0.5,
		children: [2]*Node{
			{leaf: old},
			{leaf: fresh},
		},
	}
	return fresh.id, nil
}

// CloseFocused removes the focused leaf and collapses its parent split
// into the sibling subtree. Focus moves to the first leaf of the sibling
// subtree. Closing the only leaf is refused with ErrCannotCloseLastPane.
// The removed pane's ID is returned so the caller can release its
// terminal.
func (t *Tree) CloseFocused() (PaneID, error) {
	if t.root.IsLeaf() {
		if !t.root.leaf.focused {
			return 0, ErrNoFocusedPane
		}
		return 0, ErrCannotCloseLastPane
	}

	closed, ok := t.closeIn(t.root)
	if !ok {
		return 0, ErrNoFocusedPane
	}
	return closed, nil
}

// closeIn locates the split whose direct child is the focused leaf,
// collapses it, and focuses the sibling's first leaf.
func (t *Tree) closeIn(n *Node) (PaneID, bool) {
	if n.split == nil {
		return 0, false
	}
	for i, child := range n.split.children {
		if child.leaf != nil && child.leaf.focused {
			closed := child.leaf.id
			sibling := n.split.children[1-i]
			n.leaf = sibling.leaf
			n.split = sibling.split
			focusFirstLeaf(n)
			return closed, true
		}
		if id, ok := t.closeIn(child); ok {
			return id, true
		}
	}
	return 0, false
}

func focusFirstLeaf(n *Node) {
	for n.split != nil {
		n = n.split.children[0]
	}
	n.leaf.focused = true
}

// FocusNext moves focus to the next leaf in traversal order, wrapping
// around at the end.
func (t *Tree) FocusNext() error { return t.moveFocus(1) }

// FocusPrevious moves focus to the previous leaf in traversal order,
// wrapping around at the start.
func (t *Tree) FocusPrevious() error { return t.moveFocus(-1) }

func (t *Tree) moveFocus(delta int) error {
	var leaves []*leafNode
	walkLeaves(t.root, func(l *leafNode) {
		leaves = append(leaves, l)
	})
	cur := -1
	for i, l := range leaves {
		if l.focused {
			cur = i
			break
		}
	}
	if cur < 0 {
		return ErrNoFocusedPane
	}
	leaves[cur].focused = false
	next := (cur + delta + len(leaves)) % len(leaves)
	leaves[next].focused = true
	return nil
}

// Focus moves focus to the leaf with the given ID. It is a no-op if the
// ID does not name a leaf in the tree.
func (t *Tree) Focus(id PaneID) {
	walkLeaves(t.root, func(l *leafNode) {
		l.focused = l.id == id
	})
}

// SetRatio sets the split ratio of the split directly enclosing the
// focused leaf. Returns ErrInvalidRatio for ratios outside (0, 1) and
// ErrNoSplitOnAxis when the focused leaf is the root.
func (t *Tree) SetRatio(ratio float64) error {
	if ratio <= 0 || ratio >= 1 {
		return ErrInvalidRatio
	}
	m := t.findSplitPath(t.root, anyAxis)
	if m == nil {
		return ErrNoSplitOnAxis
	}
	m.split.ratio = ratio
	return nil
}

// GrowFocused grows the focused pane's share of the nearest enclosing
// split on the given axis by delta (negative delta shrinks it). The
// resulting ratio is clamped to [0.1, 0.9] so a pane can never collapse
// to nothing. Returns ErrNoSplitOnAxis when no enclosing split runs on
// that axis.
func (t *Tree) GrowFocused(axis Axis, delta float64) error {
	if _, ok := t.FocusedID(); !ok {
		return ErrNoFocusedPane
	}
	m := t.findSplitPath(t.root, axis)
	if m == nil {
		return ErrNoSplitOnAxis
	}
	// Growing children[1] means shrinking children[0]'s share.
	if m.childIdx == 1 {
		delta = -delta
	}
	m.split.ratio = math.Min(0.9, math.Max(0.1, m.split.ratio+delta))
	return nil
}

// anyAxis matches every split axis in findSplitPath.
const anyAxis Axis = -1

// splitMatch is an ancestor split of the focused leaf together with the
// index of the child subtree that contains the focus.
type splitMatch struct {
	split    *splitNode
	childIdx int
}

// findSplitPath walks toward the focused leaf and remembers the deepest
// matching split crossed on the way.
func (t *Tree) findSplitPath(n *Node, axis Axis) *splitMatch {
	if n == nil || n.split == nil {
		return nil
	}
	for i, child := range n.split.children {
		if containsFocus(child) {
			deeper := t.findSplitPath(child, axis)
			if deeper != nil {
				return deeper
			}
			if axis == anyAxis || n.split.axis == axis {
				return &splitMatch{split: n.split, childIdx: i}
			}
			return nil
		}
	}
	return nil
}

func containsFocus(n *Node) bool {
	found := false
	walkLeaves(n, func(l *leafNode) {
		if l.focused {
			found = true
		}
	})
	return found
}

// findFocused returns the node holding the focused leaf.
func (t *Tree) findFocused(n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.leaf != nil {
		if n.leaf.focused {
			return n
		}
		return nil
	}
	if f := t.findFocused(n.split.children[0]); f != nil {
		return f
	}
	return t.findFocused(n.split.children[1])
}
