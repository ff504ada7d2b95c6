package velaterm

import (
	"log/slog"

	"github.com/velaterm/velaterm/glyph"
	"github.com/velaterm/velaterm/layout"
	"github.com/velaterm/velaterm/term"
)

// Compositor assembles per-pane buffers, wallpaper and overlay pixels
// into one window-sized buffer for GPU upload.
//
// Compositing is single-threaded and strictly ordered: wallpaper, then
// pane buffers, then the assistant card, then the background-opacity
// pass. Given identical inputs the output is byte-identical — no hidden
// frame-to-frame state affects the result.
type Compositor struct {
	glyphs       glyph.Source
	cellW, cellH int
	log          *slog.Logger
}

// NewCompositor creates a compositor matching the rasterizer's cell
// dimensions.
func NewCompositor(glyphs glyph.Source, cellW, cellH int, log *slog.Logger) *Compositor {
	return &Compositor{glyphs: glyphs, cellW: cellW, cellH: cellH, log: log}
}

// ComposeInput carries everything one compositing pass reads. All
// fields are plain values or buffers prepared before the call; the
// compositor performs no I/O.
type ComposeInput struct {
	Width, Height int

	// Wallpaper is nil when no wallpaper is configured.
	Wallpaper        *Wallpaper
	WallpaperOpacity float64

	// BackgroundOpacity multiplies the final alpha channel.
	BackgroundOpacity float64

	// Viewports and Buffers are index-aligned, in traversal order.
	Viewports []layout.Viewport
	Buffers   []*Pixmap

	// Card is the pending assistant overlay for the focused pane, or
	// nil. Cursor and Scroll position it.
	Card   *Card
	Cursor term.Point
	Scroll int
}

// Compose runs one compositing pass and returns the combined buffer.
func (c *Compositor) Compose(in ComposeInput) *Pixmap {
	out := NewPixmap(in.Width, in.Height)

	// Layer 1: wallpaper, dimmed by the wallpaper opacity. The border
	// gaps between panes stay showing this layer.
	if in.Wallpaper != nil {
		scaled := in.Wallpaper.Scaled(in.Width, in.Height)
		out.Copy(scaled, 0, 0)
		out.ScaleAlpha(in.WallpaperOpacity)
	}

	// Layer 2: pane buffers. Straight copies — pane buffers already
	// carry their terminal background and text, premultiplied.
	for i, vp := range in.Viewports {
		if i < len(in.Buffers) && in.Buffers[i] != nil {
			out.Copy(in.Buffers[i], vp.X, vp.Y)
		}
	}

	// Layer 3: assistant card, anchored below the focused pane's
	// cursor and alpha-blended.
	if in.Card != nil {
		if vp, ok := focusedViewport(in.Viewports); ok {
			c.drawCard(out, in.Card, vp, in.Cursor, in.Scroll)
		}
	}

	// Layer 4: overall background opacity.
	out.ScaleAlpha(in.BackgroundOpacity)
	return out
}

func focusedViewport(vps []layout.Viewport) (layout.Viewport, bool) {
	for _, vp := range vps {
		if vp.Focused {
			return vp, true
		}
	}
	return layout.Viewport{}, false
}

// drawCard lays the card out in cells and blends it into the buffer.
//
// The anchor row is the cursor's visible line (live line shifted down
// by the scroll offset), one row below; the anchor column indents two
// columns past the cursor. The card is clamped fully inside the focused
// viewport: it shifts left at the right edge and flips above the cursor
// row when it would cross the bottom edge.
func (c *Compositor) drawCard(out *Pixmap, card *Card, vp layout.Viewport, cursor term.Point, scroll int) {
	maxCols := vp.W / c.cellW
	maxRows := vp.H / c.cellH
	grid := layoutCard(card, maxCols, maxRows)
	if grid == nil {
		return
	}
	rows := len(grid)
	cols := len(grid[0])

	anchorRow := cursor.Line + scroll + 1
	anchorCol := cursor.Col + 2

	if anchorCol+cols > maxCols {
		anchorCol = maxCols - cols
	}
	if anchorCol < 0 {
		anchorCol = 0
	}
	if anchorRow+rows > maxRows {
		// Flip above the cursor line; if that still overflows, pin to
		// the top of the viewport.
		anchorRow = cursor.Line + scroll - rows
		if anchorRow < 0 {
			anchorRow = 0
		}
	}

	x0 := vp.X + anchorCol*c.cellW
	y0 := vp.Y + anchorRow*c.cellH
	accent := card.Accent()
	bg := RGBA{R: 0.08, G: 0.08, B: 0.1, A: 0.88}
	fg := RGB(0.92, 0.92, 0.92)

	out.BlendRect(x0, y0, cols*c.cellW, rows*c.cellH, bg)

	for gy, row := range grid {
		for gx, cell := range row {
			if cell.r == ' ' {
				continue
			}
			color := fg
			if cell.frame {
				color = accent
			}
			bm, err := c.glyphs.Rasterize(cell.r, false, false, c.cellW, c.cellH)
			if err != nil {
				bm = glyph.Placeholder(c.cellW, c.cellH)
			}
			blendMask(out, x0+gx*c.cellW, y0+gy*c.cellH, bm, color)
		}
	}
}
