package velaterm

import (
	"log/slog"
	"sync"

	"github.com/mattn/go-runewidth"

	"github.com/velaterm/velaterm/glyph"
	"github.com/velaterm/velaterm/internal/parallel"
	"github.com/velaterm/velaterm/layout"
	"github.com/velaterm/velaterm/term"
)

// Rasterizer converts terminal snapshots into per-pane pixel buffers.
//
// Every visible pane is rasterized independently on the worker pool;
// buffers are pane-local, so no synchronization is needed between pane
// tasks. Terminal state is read through a non-blocking snapshot: when
// the emulator's I/O side holds its lock, the pane is skipped for this
// frame and its previous buffer is reused. Staleness over latency.
//
// Thread safety: RasterizeAll must be called from one goroutine at a
// time (the engine's render path); the internal pane tasks run
// concurrently.
type Rasterizer struct {
	src    term.Source
	glyphs glyph.Source
	pool   *parallel.WorkerPool
	log    *slog.Logger

	cellW, cellH int
	defaultFG    RGBA
	defaultBG    RGBA

	// prev holds the last successfully rendered buffer per pane, used
	// when a snapshot is unavailable. Guarded by mu: RasterizeAll
	// publishes into it only after the frame barrier.
	mu   sync.Mutex
	prev map[layout.PaneID]*Pixmap
}

// NewRasterizer creates a rasterizer drawing cells of cellW x cellH
// pixels. workers <= 0 selects GOMAXPROCS.
func NewRasterizer(src term.Source, glyphs glyph.Source, cellW, cellH, workers int, log *slog.Logger) *Rasterizer {
	return &Rasterizer{
		src:       src,
		glyphs:    glyphs,
		pool:      parallel.NewWorkerPool(workers),
		log:       log,
		cellW:     cellW,
		cellH:     cellH,
		defaultFG: RGB(0.9, 0.9, 0.9),
		defaultBG: Black,
		prev:      make(map[layout.PaneID]*Pixmap),
	}
}

// Close stops the worker pool.
func (r *Rasterizer) Close() {
	r.pool.Close()
}

// SetDefaultColors sets the colors used for cells whose style carries no
// explicit foreground or background.
func (r *Rasterizer) SetDefaultColors(fg, bg RGBA) {
	r.defaultFG = fg
	r.defaultBG = bg
}

// CellSize returns the cell dimensions in pixels.
func (r *Rasterizer) CellSize() (w, h int) { return r.cellW, r.cellH }

// RasterizeAll produces one buffer per viewport, in viewport order.
// scroll applies to the focused pane only; unfocused panes always show
// the live view. The call returns only after every pane task has
// finished or been skipped — the compositor can consume the result
// immediately.
func (r *Rasterizer) RasterizeAll(vps []layout.Viewport, scroll int) []*Pixmap {
	out := make([]*Pixmap, len(vps))

	work := make([]func(), len(vps))
	for i := range vps {
		i := i
		vp := vps[i]
		work[i] = func() {
			out[i] = r.rasterPane(vp, scroll)
		}
	}
	r.pool.ExecuteAll(work)

	r.mu.Lock()
	for i, vp := range vps {
		if out[i] != nil {
			r.prev[vp.PaneID] = out[i]
		}
	}
	// Drop cached buffers for panes that no longer exist.
	live := make(map[layout.PaneID]bool, len(vps))
	for _, vp := range vps {
		live[vp.PaneID] = true
	}
	for id := range r.prev {
		if !live[id] {
			delete(r.prev, id)
		}
	}
	r.mu.Unlock()

	// Fill skipped panes from the cache after the barrier.
	for i, vp := range vps {
		if out[i] == nil {
			out[i] = r.previous(vp)
		}
	}
	return out
}

// rasterPane renders one pane, or returns nil when the snapshot is
// unavailable this frame. A collaborator panic degrades the pane to a
// blank buffer instead of taking down the frame.
func (r *Rasterizer) rasterPane(vp layout.Viewport, scroll int) (pm *Pixmap) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("pane rasterization failed, pane blanked",
				"pane", vp.PaneID, "err", rec)
			pm = NewPixmap(vp.W, vp.H)
			pm.Clear(r.defaultBG)
		}
	}()
	paneScroll := 0
	if vp.Focused {
		paneScroll = scroll
	}
	snap, ok := r.src.Snapshot(term.PaneID(vp.PaneID), paneScroll)
	if !ok {
		r.log.Debug("pane snapshot unavailable, reusing previous buffer",
			"pane", vp.PaneID)
		return nil
	}

	pm = NewPixmap(vp.W, vp.H)
	pm.Clear(r.defaultBG)
	r.drawGrid(pm, &snap)
	return pm
}

// drawGrid paints every visible cell of the snapshot into pm.
// A failure for a single cell degrades to the placeholder glyph; a
// panic-free guarantee per pane is what keeps one bad pane from
// aborting the frame.
func (r *Rasterizer) drawGrid(pm *Pixmap, snap *term.Snapshot) {
	rows := min(snap.Rows, pm.Height()/r.cellH+1)
	cols := min(snap.Cols, pm.Width()/r.cellW+1)

	for line := 0; line < rows; line++ {
		for col := 0; col < cols; col++ {
			cell := snap.Cell(line, col)
			if cell.Rune == 0 {
				continue // continuation of a wide glyph
			}
			w := runewidth.RuneWidth(cell.Rune)
			if w <= 0 {
				continue
			}
			r.drawCell(pm, cell, col, line, w)
			if w == 2 {
				col++
			}
		}
	}
}

func (r *Rasterizer) drawCell(pm *Pixmap, cell term.Cell, col, line, width int) {
	fg := styleColor(cell.Style.FG, r.defaultFG)
	bg := styleColor(cell.Style.BG, r.defaultBG)
	if cell.Style.Attrs&term.AttrReverse != 0 {
		fg, bg = bg, fg
	}

	x := col * r.cellW
	y := line * r.cellH
	cw := r.cellW * width

	pm.FillRect(x, y, cw, r.cellH, bg)

	if cell.Rune == ' ' {
		return
	}

	bold := cell.Style.Attrs&term.AttrBold != 0
	italic := cell.Style.Attrs&term.AttrItalic != 0
	bm, err := r.glyphs.Rasterize(cell.Rune, bold, italic, cw, r.cellH)
	if err != nil {
		r.log.Warn("glyph rasterization failed, using placeholder",
			"rune", string(cell.Rune), "err", err)
		bm = glyph.Placeholder(cw, r.cellH)
	}
	blendMask(pm, x, y, bm, fg)

	if cell.Style.Attrs&term.AttrUnderline != 0 {
		pm.FillRect(x, y+r.cellH-2, cw, 1, fg)
	}
}

// blendMask composites an alpha coverage mask tinted with fg at (x, y).
func blendMask(pm *Pixmap, x, y int, bm glyph.Bitmap, fg RGBA) {
	for my := 0; my < bm.H; my++ {
		row := my * bm.W
		for mx := 0; mx < bm.W; mx++ {
			cov := bm.Alpha[row+mx]
			if cov == 0 {
				continue
			}
			c := fg
			c.A = fg.A * float64(cov) / 255
			pm.BlendPixel(x+mx, y+my, c)
		}
	}
}

// previous returns the pane's last good buffer if its size still
// matches the viewport, or a blank buffer otherwise (after a resize the
// stale buffer would be misplaced).
func (r *Rasterizer) previous(vp layout.Viewport) *Pixmap {
	r.mu.Lock()
	pm := r.prev[vp.PaneID]
	r.mu.Unlock()
	if pm != nil && pm.Width() == vp.W && pm.Height() == vp.H {
		return pm
	}
	blank := NewPixmap(vp.W, vp.H)
	blank.Clear(r.defaultBG)
	return blank
}

// styleColor converts a cell color, falling back to def for the zero
// value (no explicit color set by the emulator).
func styleColor(c term.Color, def RGBA) RGBA {
	if c == (term.Color{}) {
		return def
	}
	return RGBA{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
		A: float64(c.A) / 255,
	}
}
