package velaterm

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"

	"github.com/velaterm/velaterm/layout"
)

// CardKind classifies a transient assistant overlay.
type CardKind int

const (
	// CardGenerating shows a progress indicator while the assistant is
	// producing a suggestion.
	CardGenerating CardKind = iota

	// CardSuggestion shows a command suggestion awaiting confirmation.
	CardSuggestion

	// CardError shows an assistant failure.
	CardError
)

// Card is a transient UI overlay anchored to a pane's cursor. Cards are
// delivered over the engine's overlay channel by the assistant
// collaborator and cleared on confirmation or cancellation; the engine
// never calls into the assistant.
type Card struct {
	PaneID  layout.PaneID
	Kind    CardKind
	Payload string
}

// Accent returns the border color for the card kind.
func (c *Card) Accent() RGBA {
	switch c.Kind {
	case CardError:
		return RGB(0.85, 0.3, 0.3)
	case CardSuggestion:
		return RGB(0.3, 0.75, 0.4)
	default:
		return RGB(0.35, 0.55, 0.9)
	}
}

// cardCell is one laid-out cell of a card: a rune plus whether it is
// part of the box frame (frame cells take the accent color).
type cardCell struct {
	r     rune
	frame bool
}

// layoutCard converts the payload into a bordered grid of cells at most
// maxCols wide and maxRows tall. The payload is NFC-normalized first so
// combining sequences match precomposed glyphs in the font.
func layoutCard(c *Card, maxCols, maxRows int) [][]cardCell {
	if maxCols < 4 || maxRows < 3 {
		return nil
	}

	content := wrapRunes(norm.NFC.String(c.Payload), maxCols-4)
	if len(content) > maxRows-2 {
		content = content[:maxRows-2]
	}

	inner := 0
	for _, line := range content {
		if w := lineWidth(line); w > inner {
			inner = w
		}
	}

	cols := inner + 4
	rows := len(content) + 2
	grid := make([][]cardCell, rows)
	for y := range grid {
		grid[y] = make([]cardCell, cols)
		for x := range grid[y] {
			grid[y][x] = cardCell{r: ' '}
		}
	}

	// Box frame.
	for x := 1; x < cols-1; x++ {
		grid[0][x] = cardCell{r: '─', frame: true}
		grid[rows-1][x] = cardCell{r: '─', frame: true}
	}
	for y := 1; y < rows-1; y++ {
		grid[y][0] = cardCell{r: '│', frame: true}
		grid[y][cols-1] = cardCell{r: '│', frame: true}
	}
	grid[0][0] = cardCell{r: '┌', frame: true}
	grid[0][cols-1] = cardCell{r: '┐', frame: true}
	grid[rows-1][0] = cardCell{r: '└', frame: true}
	grid[rows-1][cols-1] = cardCell{r: '┘', frame: true}

	// Content, two cells in from the left border.
	for y, line := range content {
		x := 2
		for _, r := range line {
			w := runewidth.RuneWidth(r)
			if w <= 0 || x+w > cols-1 {
				continue
			}
			grid[y+1][x] = cardCell{r: r}
			x += w
		}
	}
	return grid
}

// wrapRunes splits text into display lines no wider than width cells,
// breaking on spaces where possible.
func wrapRunes(text string, width int) [][]rune {
	var lines [][]rune
	for _, raw := range strings.Split(text, "\n") {
		runes := []rune(raw)
		for {
			if lineWidth(runes) <= width {
				lines = append(lines, runes)
				break
			}
			cut := breakIndex(runes, width)
			lines = append(lines, runes[:cut])
			runes = runes[cut:]
			for len(runes) > 0 && runes[0] == ' ' {
				runes = runes[1:]
			}
		}
	}
	return lines
}

// breakIndex finds the rune index to break at: the last space fitting
// within width cells, else a hard break at the width boundary.
func breakIndex(runes []rune, width int) int {
	w := 0
	lastSpace := -1
	for i, r := range runes {
		rw := runewidth.RuneWidth(r)
		if w+rw > width {
			if lastSpace > 0 {
				return lastSpace
			}
			if i == 0 {
				return 1
			}
			return i
		}
		if r == ' ' {
			lastSpace = i
		}
		w += rw
	}
	return len(runes)
}

func lineWidth(runes []rune) int {
	w := 0
	for _, r := range runes {
		w += runewidth.RuneWidth(r)
	}
	return w
}
