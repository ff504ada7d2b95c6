package layout

// Viewport is the pixel rectangle assigned to a pane for the current
// frame. Viewports are derived from the tree and the window dimensions
// each frame; they are never stored.
type Viewport struct {
	PaneID  PaneID
	X, Y    int
	W, H    int
	Focused bool
}

// Contains reports whether the point (x, y) lies inside the viewport.
func (v Viewport) Contains(x, y int) bool {
	return x >= v.X && x < v.X+v.W && y >= v.Y && y < v.Y+v.H
}

// Viewports derives the viewport of every leaf for a window of the given
// pixel dimensions. Along a split axis, children[0] receives
// round(ratio*extent) - borderPx/2 pixels and children[1] the remainder
// after the border gap; the other axis is inherited unchanged.
//
// The result is a pure function of the tree and the arguments: the
// rectangles never overlap and, together with the border gaps, exactly
// cover the window. Leaves appear in traversal order.
func (t *Tree) Viewports(windowW, windowH, borderPx int) []Viewport {
	var out []Viewport
	splitRect(t.root, 0, 0, windowW, windowH, borderPx, &out)
	return out
}

func splitRect(n *Node, x, y, w, h, border int, out *[]Viewport) {
	if n == nil {
		return
	}
	if n.leaf != nil {
		*out = append(*out, Viewport{
			PaneID:  n.leaf.id,
			X:       x,
			Y:       y,
			W:       w,
			H:       h,
			Focused: n.leaf.focused,
		})
		return
	}

	s := n.split
	if s.axis == Vertical {
		first := extentOf(s.ratio, w, border)
		second := w - first - border
		splitRect(s.children[0], x, y, first, h, border, out)
		splitRect(s.children[1], x+first+border, y, second, h, border, out)
	} else {
		first := extentOf(s.ratio, h, border)
		second := h - first - border
		splitRect(s.children[0], x, y, w, first, border, out)
		splitRect(s.children[1], x, y+first+border, w, second, border, out)
	}
}

// extentOf computes the extent of children[0] along the split axis.
func extentOf(ratio float64, extent, border int) int {
	first := int(ratio*float64(extent)+0.5) - border/2
	if first < 0 {
		first = 0
	}
	if first > extent {
		first = extent
	}
	return first
}

// GridCell is the cell-grid size assigned to one pane by GridResize.
type GridCell struct {
	PaneID PaneID
	Cols   int
	Rows   int
}

// GridResize mirrors Viewports in terminal cell units: it distributes a
// cols x rows cell grid over the tree with the same allocation rule and
// no border gap, and reports the grid assigned to each leaf. The caller
// forwards each entry to its terminal-resize collaborator.
func (t *Tree) GridResize(cols, rows int) []GridCell {
	var out []Viewport
	splitRect(t.root, 0, 0, cols, rows, 0, &out)
	cells := make([]GridCell, len(out))
	for i, v := range out {
		cells[i] = GridCell{PaneID: v.PaneID, Cols: v.W, Rows: v.H}
	}
	return cells
}

// Direction is a geometric focus-navigation direction.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

// FocusDirectional moves focus to the nearest pane in the given
// direction, preferring candidates whose viewport overlaps the focused
// one on the orthogonal axis. Focus is unchanged when no pane lies in
// that direction. The window dimensions are needed to derive the
// geometry.
func (t *Tree) FocusDirectional(dir Direction, windowW, windowH, borderPx int) error {
	vps := t.Viewports(windowW, windowH, borderPx)
	var cur *Viewport
	for i := range vps {
		if vps[i].Focused {
			cur = &vps[i]
			break
		}
	}
	if cur == nil {
		return ErrNoFocusedPane
	}

	best := -1
	bestDist := 0
	for i := range vps {
		v := &vps[i]
		if v.PaneID == cur.PaneID {
			continue
		}
		var dist int
		switch dir {
		case Left:
			if v.X+v.W > cur.X || !overlapsVertically(v, cur) {
				continue
			}
			dist = cur.X - (v.X + v.W)
		case Right:
			if v.X < cur.X+cur.W || !overlapsVertically(v, cur) {
				continue
			}
			dist = v.X - (cur.X + cur.W)
		case Up:
			if v.Y+v.H > cur.Y || !overlapsHorizontally(v, cur) {
				continue
			}
			dist = cur.Y - (v.Y + v.H)
		case Down:
			if v.Y < cur.Y+cur.H || !overlapsHorizontally(v, cur) {
				continue
			}
			dist = v.Y - (cur.Y + cur.H)
		}
		if best < 0 || dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	if best >= 0 {
		t.Focus(vps[best].PaneID)
	}
	return nil
}

// overlapsVertically reports whether two viewports share any Y range.
func overlapsVertically(a, b *Viewport) bool {
	return a.Y < b.Y+b.H && b.Y < a.Y+a.H
}

// overlapsHorizontally reports whether two viewports share any X range.
func overlapsHorizontally(a, b *Viewport) bool {
	return a.X < b.X+b.W && b.X < a.X+a.W
}
