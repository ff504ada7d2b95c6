package velaterm

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/velaterm/velaterm/layout"
	"github.com/velaterm/velaterm/term"
)

func testWallpaper(w, h int, c color.RGBA) *Wallpaper {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return newWallpaper("test", img, newNopLogger())
}

func solidBuffer(w, h int, c RGBA) *Pixmap {
	pm := NewPixmap(w, h)
	pm.Clear(c)
	return pm
}

func TestComposeDeterministic(t *testing.T) {
	comp := NewCompositor(placeholderGlyphs{}, 8, 16, newNopLogger())
	in := ComposeInput{
		Width:             64,
		Height:            48,
		Wallpaper:         testWallpaper(16, 16, color.RGBA{R: 40, G: 80, B: 120, A: 255}),
		WallpaperOpacity:  0.7,
		BackgroundOpacity: 0.9,
		Viewports: []layout.Viewport{
			{PaneID: 1, X: 0, Y: 0, W: 31, H: 48},
			{PaneID: 2, X: 33, Y: 0, W: 31, H: 48, Focused: true},
		},
		Buffers: []*Pixmap{
			solidBuffer(31, 48, RGB(0.1, 0.1, 0.1)),
			solidBuffer(31, 48, RGB(0.2, 0.2, 0.2)),
		},
		Card:   &Card{PaneID: 2, Kind: CardSuggestion, Payload: "ok"},
		Cursor: term.Point{Line: 0, Col: 0},
	}

	first := comp.Compose(in)
	second := comp.Compose(in)
	if !bytes.Equal(first.Data(), second.Data()) {
		t.Error("identical inputs produced different buffers")
	}
}

func TestComposeLayersPanesOverWallpaper(t *testing.T) {
	comp := NewCompositor(placeholderGlyphs{}, 8, 16, newNopLogger())
	in := ComposeInput{
		Width:             20,
		Height:            10,
		Wallpaper:         testWallpaper(4, 4, color.RGBA{R: 255, A: 255}),
		WallpaperOpacity:  1,
		BackgroundOpacity: 1,
		Viewports:         []layout.Viewport{{PaneID: 1, X: 0, Y: 0, W: 9, H: 10, Focused: true}},
		Buffers:           []*Pixmap{solidBuffer(9, 10, RGB(0, 1, 0))},
	}

	out := comp.Compose(in)
	// Pane area shows the pane buffer, not the wallpaper.
	if got := out.GetPixel(4, 4); got != RGB(0, 1, 0) {
		t.Errorf("pane pixel = %+v, want green", got)
	}
	// The gap to the right of the pane still shows the wallpaper.
	if got := out.GetPixel(15, 4); got.R < 0.9 || got.G > 0.1 {
		t.Errorf("gap pixel = %+v, want red wallpaper", got)
	}
}

func TestComposeWallpaperOpacity(t *testing.T) {
	comp := NewCompositor(placeholderGlyphs{}, 8, 16, newNopLogger())
	in := ComposeInput{
		Width:             8,
		Height:            8,
		Wallpaper:         testWallpaper(8, 8, color.RGBA{R: 255, G: 255, B: 255, A: 255}),
		WallpaperOpacity:  0.5,
		BackgroundOpacity: 1,
	}

	out := comp.Compose(in)
	if a := out.Data()[3]; a != 128 {
		t.Errorf("wallpaper alpha = %d, want 128", a)
	}
}

func TestComposeBackgroundOpacity(t *testing.T) {
	comp := NewCompositor(placeholderGlyphs{}, 8, 16, newNopLogger())
	in := ComposeInput{
		Width:             8,
		Height:            8,
		BackgroundOpacity: 0.5,
		Viewports:         []layout.Viewport{{PaneID: 1, X: 0, Y: 0, W: 8, H: 8, Focused: true}},
		Buffers:           []*Pixmap{solidBuffer(8, 8, White)},
	}

	out := comp.Compose(in)
	if a := out.Data()[3]; a != 128 {
		t.Errorf("alpha after background pass = %d, want 128", a)
	}
}

func TestComposeCardAnchorsBelowCursor(t *testing.T) {
	const cellW, cellH = 8, 16
	comp := NewCompositor(placeholderGlyphs{}, cellW, cellH, newNopLogger())
	vp := layout.Viewport{PaneID: 1, X: 0, Y: 0, W: 320, H: 320, Focused: true}
	in := ComposeInput{
		Width:             320,
		Height:            320,
		BackgroundOpacity: 1,
		Viewports:         []layout.Viewport{vp},
		Buffers:           []*Pixmap{nil},
		Card:              &Card{PaneID: 1, Kind: CardSuggestion, Payload: "hi"},
		Cursor:            term.Point{Line: 2, Col: 1},
	}

	out := comp.Compose(in)
	// Anchor row = cursor line + 1 = 3, anchor col = cursor col + 2 = 3.
	// The card background is visible at the anchor cell, and the row
	// above the anchor stays untouched.
	if got := out.GetPixel(3*cellW+1, 3*cellH+1); got.A == 0 {
		t.Error("no card pixels at the anchor cell")
	}
	if got := out.GetPixel(3*cellW+1, 2*cellH+1); got.A != 0 {
		t.Errorf("cursor row overdrawn by card: %+v", got)
	}
}

func TestComposeCardFlipsAboveAtBottom(t *testing.T) {
	const cellW, cellH = 8, 16
	comp := NewCompositor(placeholderGlyphs{}, cellW, cellH, newNopLogger())
	// 5-row pane with the cursor on the last row: the card cannot fit
	// below and flips above the cursor line.
	vp := layout.Viewport{PaneID: 1, X: 0, Y: 0, W: 160, H: 5 * cellH, Focused: true}
	in := ComposeInput{
		Width:             160,
		Height:            5 * cellH,
		BackgroundOpacity: 1,
		Viewports:         []layout.Viewport{vp},
		Buffers:           []*Pixmap{nil},
		Card:              &Card{PaneID: 1, Kind: CardSuggestion, Payload: "x"},
		Cursor:            term.Point{Line: 4, Col: 0},
	}

	out := comp.Compose(in)
	// Card rows occupy lines 1..3 (cursor line 4 minus 3 card rows).
	if got := out.GetPixel(2*cellW+1, 1*cellH+1); got.A == 0 {
		t.Error("no card pixels above the cursor after flip")
	}
	if got := out.GetPixel(2*cellW+1, 4*cellH+1); got.A != 0 {
		t.Errorf("cursor row overdrawn by flipped card: %+v", got)
	}
}

func TestComposeCardNeedsFocusedPane(t *testing.T) {
	comp := NewCompositor(placeholderGlyphs{}, 8, 16, newNopLogger())
	in := ComposeInput{
		Width:             64,
		Height:            64,
		BackgroundOpacity: 1,
		Viewports:         []layout.Viewport{{PaneID: 1, W: 64, H: 64}},
		Buffers:           []*Pixmap{nil},
		Card:              &Card{PaneID: 1, Payload: "hi"},
	}

	out := comp.Compose(in)
	for _, b := range out.Data() {
		if b != 0 {
			t.Fatal("card drawn without a focused viewport")
		}
	}
}
