// Package term defines the contracts between the rendering engine and
// the terminal-emulation collaborator.
//
// The engine never reaches into emulator internals. It consumes a
// Source: a capability interface that hands out immutable grid snapshots
// without blocking, and accepts resize notifications. Any emulator
// backend implementing Source is interchangeable.
package term

// PaneID identifies a pane. It mirrors layout.PaneID; the two are kept
// as separate named types so that term stays free of layout imports.
type PaneID uint64

// Color is an 8-bit straight-alpha RGBA cell color.
type Color struct {
	R, G, B, A uint8
}

// Attr is a bit set of cell display attributes.
type Attr uint8

const (
	AttrBold Attr = 1 << iota
	AttrItalic
	AttrUnderline
	AttrReverse
)

// Style is the visual style of one cell: colors plus attributes.
type Style struct {
	FG    Color
	BG    Color
	Attrs Attr
}

// Cell is one grid cell of a snapshot.
type Cell struct {
	Rune  rune
	Style Style
}

// Point is a grid position: Line counts rows from the top of the visible
// grid, Col counts columns from the left.
type Point struct {
	Line int
	Col  int
}

// CursorShape is the rendered shape of the cursor.
type CursorShape int

const (
	CursorBlock CursorShape = iota
	CursorBeam
	CursorUnderline
)

// ModeFlags carries the emulator mode bits the renderer cares about.
type ModeFlags struct {
	// CursorVisible is the cursor-visibility mode flag (DECTCEM).
	CursorVisible bool

	// CursorBlink requests a blinking cursor.
	CursorBlink bool
}

// Snapshot is an immutable copy of a pane's visible terminal state.
//
// Lines holds exactly Rows rows of exactly Cols cells. When the pane is
// scrolled, Lines already reflects the history window the emulator
// selected; the renderer does not index into scrollback itself.
type Snapshot struct {
	Cols, Rows int
	Lines      [][]Cell

	Cursor      Point
	CursorShape CursorShape
	Modes       ModeFlags

	// ScrollbackDepth is the number of history lines above the live view.
	ScrollbackDepth int
}

// Cell returns the cell at (line, col), or a blank cell when the
// position lies outside the grid.
func (s *Snapshot) Cell(line, col int) Cell {
	if line < 0 || line >= len(s.Lines) {
		return Cell{Rune: ' '}
	}
	row := s.Lines[line]
	if col < 0 || col >= len(row) {
		return Cell{Rune: ' '}
	}
	return row[col]
}

// LineRunes returns the text of one grid line. Used by selection
// expansion to find word boundaries.
func (s *Snapshot) LineRunes(line int) []rune {
	if line < 0 || line >= len(s.Lines) {
		return nil
	}
	runes := make([]rune, len(s.Lines[line]))
	for i, c := range s.Lines[line] {
		runes[i] = c.Rune
	}
	return runes
}

// Source supplies terminal state to the renderer.
//
// Snapshot must not block: when the emulator's internal lock is held by
// its I/O side, the implementation returns ok=false and the renderer
// reuses the pane's previous buffer for this frame. scroll is the
// focused pane's history offset in lines; implementations return the
// live view for scroll 0.
//
// Thread safety: Snapshot is called concurrently from rasterizer
// workers, one pane per call. Resize is called from the engine's owner
// goroutine only.
type Source interface {
	// Snapshot returns an immutable view of the pane's grid, or ok=false
	// on contention. The returned snapshot must not alias emulator
	// memory that can change after the call.
	Snapshot(id PaneID, scroll int) (snap Snapshot, ok bool)

	// Resize informs the emulator that the pane's grid changed.
	Resize(id PaneID, cols, rows int)
}
