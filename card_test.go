package velaterm

import (
	"strings"
	"testing"
)

func gridLines(grid [][]cardCell) []string {
	lines := make([]string, len(grid))
	for y, row := range grid {
		var b strings.Builder
		for _, c := range row {
			b.WriteRune(c.r)
		}
		lines[y] = b.String()
	}
	return lines
}

func TestCardAccent(t *testing.T) {
	tests := []struct {
		kind CardKind
		want RGBA
	}{
		{CardGenerating, RGB(0.35, 0.55, 0.9)},
		{CardSuggestion, RGB(0.3, 0.75, 0.4)},
		{CardError, RGB(0.85, 0.3, 0.3)},
	}
	for _, tt := range tests {
		c := &Card{Kind: tt.kind}
		if got := c.Accent(); got != tt.want {
			t.Errorf("Accent(%v) = %+v, want %+v", tt.kind, got, tt.want)
		}
	}
}

func TestLayoutCardFrame(t *testing.T) {
	card := &Card{Kind: CardSuggestion, Payload: "ls -la"}
	grid := layoutCard(card, 40, 10)
	if grid == nil {
		t.Fatal("layoutCard returned nil")
	}

	lines := gridLines(grid)
	want := []string{
		" ──────── ",
		"│ ls -la │",
		" ──────── ",
	}
	// Corner runes sit at the frame ends.
	if len(lines) != 3 {
		t.Fatalf("grid = %q, want 3 rows", lines)
	}
	if grid[0][0].r != '┌' || grid[0][len(grid[0])-1].r != '┐' {
		t.Errorf("top corners = %q %q", grid[0][0].r, grid[0][len(grid[0])-1].r)
	}
	if grid[2][0].r != '└' || grid[2][len(grid[2])-1].r != '┘' {
		t.Errorf("bottom corners = %q %q", grid[2][0].r, grid[2][len(grid[2])-1].r)
	}
	if lines[1] != want[1] {
		t.Errorf("content row = %q, want %q", lines[1], want[1])
	}

	// Frame cells carry the frame flag; content cells do not.
	if !grid[0][1].frame || grid[1][2].frame {
		t.Error("frame flags wrong")
	}
}

func TestLayoutCardWraps(t *testing.T) {
	card := &Card{Payload: "one two three four"}
	// Inner width maxCols-4 = 9 forces wrapping on spaces.
	grid := layoutCard(card, 13, 10)
	if grid == nil {
		t.Fatal("layoutCard returned nil")
	}

	lines := gridLines(grid)
	if len(lines) != 5 {
		t.Fatalf("rows = %d (%q), want 5", len(lines), lines)
	}
	if !strings.Contains(lines[1], "one two") {
		t.Errorf("first content row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "three") {
		t.Errorf("second content row = %q", lines[2])
	}
	if !strings.Contains(lines[3], "four") {
		t.Errorf("third content row = %q", lines[3])
	}
}

func TestLayoutCardTruncatesRows(t *testing.T) {
	card := &Card{Payload: "a\nb\nc\nd\ne\nf"}
	grid := layoutCard(card, 20, 4)
	if grid == nil {
		t.Fatal("layoutCard returned nil")
	}
	// Two frame rows plus at most maxRows-2 content rows.
	if len(grid) != 4 {
		t.Errorf("rows = %d, want 4", len(grid))
	}
}

func TestLayoutCardTooSmall(t *testing.T) {
	card := &Card{Payload: "x"}
	if grid := layoutCard(card, 3, 10); grid != nil {
		t.Error("grid built in a 3-column pane")
	}
	if grid := layoutCard(card, 10, 2); grid != nil {
		t.Error("grid built in a 2-row pane")
	}
}

func TestLayoutCardNormalizes(t *testing.T) {
	// e + combining acute composes to a single precomposed rune.
	card := &Card{Payload: "café"}
	grid := layoutCard(card, 20, 5)
	if grid == nil {
		t.Fatal("layoutCard returned nil")
	}
	found := false
	for _, c := range grid[1] {
		if c.r == 'é' {
			found = true
		}
	}
	if !found {
		t.Errorf("content row %q missing precomposed rune", gridLines(grid)[1])
	}
}

func TestLayoutCardWideRunes(t *testing.T) {
	// CJK runes are two cells wide; the grid reserves the extra cell.
	card := &Card{Payload: "日本"}
	grid := layoutCard(card, 20, 5)
	if grid == nil {
		t.Fatal("layoutCard returned nil")
	}
	// Inner width 4 cells, total cols 8.
	if len(grid[0]) != 8 {
		t.Errorf("cols = %d, want 8", len(grid[0]))
	}
	if grid[1][2].r != '日' || grid[1][4].r != '本' {
		t.Errorf("content row = %q", gridLines(grid)[1])
	}
}

func TestWrapRunesHardBreak(t *testing.T) {
	lines := wrapRunes("abcdefghij", 4)
	if len(lines) != 3 {
		t.Fatalf("lines = %q, want 3", lines)
	}
	if string(lines[0]) != "abcd" || string(lines[1]) != "efgh" || string(lines[2]) != "ij" {
		t.Errorf("lines = %q", lines)
	}
}
