package velaterm

import (
	"unicode"

	"github.com/velaterm/velaterm/layout"
	"github.com/velaterm/velaterm/term"
)

// SelectionMode controls how a selection range expands before it is
// converted to rectangles.
type SelectionMode int

const (
	// SelectChar selects exactly the dragged range.
	SelectChar SelectionMode = iota

	// SelectWord expands both ends to word boundaries.
	SelectWord

	// SelectLine expands both ends to full lines.
	SelectLine
)

// Selection is a text selection over a pane's visible grid.
// Start precedes End in document order after Normalize.
type Selection struct {
	Start term.Point
	End   term.Point
	Mode  SelectionMode
}

// Normalize returns the selection with Start and End swapped if needed
// so that Start precedes End in document order.
func (s Selection) Normalize() Selection {
	if s.End.Line < s.Start.Line ||
		(s.End.Line == s.Start.Line && s.End.Col < s.Start.Col) {
		s.Start, s.End = s.End, s.Start
	}
	return s
}

// Rects converts the selection into pixel rectangles, one per affected
// grid line: the first line spans from the start column to the line
// end, interior lines span the full width, and the last line spans from
// the line start to the end column. Word and Line modes expand the
// range before conversion.
//
// The conversion is a pure function of its inputs: converting the same
// selection twice yields identical rectangles. The result feeds the
// presenter's instanced selection quads and is never baked into the
// composited CPU buffer.
func (s Selection) Rects(snap *term.Snapshot, vp layout.Viewport, cellW, cellH int) []PixelRect {
	sel := s.Normalize()
	switch sel.Mode {
	case SelectWord:
		sel = sel.expandWords(snap)
	case SelectLine:
		sel.Start.Col = 0
		sel.End.Col = snap.Cols - 1
	}

	var rects []PixelRect
	for line := sel.Start.Line; line <= sel.End.Line; line++ {
		startCol := 0
		endCol := snap.Cols - 1
		if line == sel.Start.Line {
			startCol = sel.Start.Col
		}
		if line == sel.End.Line {
			endCol = sel.End.Col
		}
		if endCol < startCol {
			continue
		}
		rects = append(rects, PixelRect{
			X: vp.X + startCol*cellW,
			Y: vp.Y + line*cellH,
			W: (endCol - startCol + 1) * cellW,
			H: cellH,
		})
	}
	return rects
}

// expandWords widens the selection ends to word boundaries using the
// snapshot's line text.
func (s Selection) expandWords(snap *term.Snapshot) Selection {
	startLine := snap.LineRunes(s.Start.Line)
	for s.Start.Col > 0 && s.Start.Col-1 < len(startLine) && isWordRune(startLine[s.Start.Col-1]) {
		s.Start.Col--
	}
	endLine := snap.LineRunes(s.End.Line)
	for s.End.Col+1 < len(endLine) && isWordRune(endLine[s.End.Col+1]) {
		s.End.Col++
	}
	return s
}

// isWordRune reports whether r belongs to a word for double-click
// selection: letters, digits and underscore.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
