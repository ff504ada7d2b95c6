package velaterm

import (
	"errors"
	"sync"
	"time"

	"github.com/velaterm/velaterm/glyph"
	"github.com/velaterm/velaterm/layout"
	"github.com/velaterm/velaterm/present"
	"github.com/velaterm/velaterm/term"
)

// Engine errors.
var (
	// ErrEngineClosed is returned from operations on a closed engine.
	ErrEngineClosed = errors.New("velaterm: engine closed")

	// ErrNilSource is returned when creating an engine without a
	// terminal source.
	ErrNilSource = errors.New("velaterm: nil terminal source")

	// ErrInvalidSize is returned for non-positive window dimensions.
	ErrInvalidSize = errors.New("velaterm: invalid window size")
)

// overlayCardBuffer bounds the assistant card channel. A dedicated
// consumer folds cards as they arrive, so senders are decoupled from
// frames in flight; a later card for the same pane replaces the
// earlier one.
const overlayCardBuffer = 16

// Overlay quad colors.
var (
	cursorColor    = RGBA{R: 0.9, G: 0.9, B: 0.9, A: 0.8}
	selectionColor = RGBA{R: 0.4, G: 0.5, B: 0.8, A: 0.35}
)

// Engine drives the full frame pipeline: layout, parallel pane
// rasterization, composition, overlay state, and GPU presentation.
//
// All public methods are safe for concurrent use. Rendering itself is
// serialized: frames pass through a coalescing scheduler, so a burst of
// triggers produces at most one in-flight and one pending frame.
type Engine struct {
	opts engineOptions

	src       term.Source
	tree      *layout.Tree
	rast      *Rasterizer
	comp      *Compositor
	overlay   *OverlayState
	presenter *present.Presenter
	sched     *frameScheduler

	cards chan Card

	// renderMu serializes full pipeline passes and guards last.
	renderMu sync.Mutex
	last     frameCache

	mu        sync.Mutex
	width     int
	height    int
	wallpaper *Wallpaper
	wallOp    float64
	backOp    float64
	scroll    int
	lastDepth int
	selection *Selection
	paneCards map[layout.PaneID]Card
	paneSizes map[layout.PaneID][2]int
	closed    bool
	stop      chan struct{}
	loops     sync.WaitGroup
}

// frameCache holds the previous full pass's output so a pure blink
// frame can resubmit the composed pixels with only the cursor quad
// recomputed. Guarded by renderMu.
type frameCache struct {
	valid         bool
	width, height int
	terminal      []uint8
	selection     []present.Quad
	borders       []present.Quad
	snap          term.Snapshot
	haveSnap      bool
	focusedVP     layout.Viewport
	haveVP        bool
	scroll        int
}

// NewEngine creates an engine rendering into a width x height window.
// The source provides terminal content for every pane; options
// configure everything else.
func NewEngine(src term.Source, width, height int, opts ...EngineOption) (*Engine, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}

	o := defaultEngineOptions()
	for _, opt := range opts {
		opt(&o)
	}

	log := Logger()

	glyphs := o.glyphs
	if glyphs == nil {
		glyphs = placeholderGlyphs{}
		log.Info("no glyph source configured, using placeholder boxes")
	}

	e := &Engine{
		opts:      o,
		src:       src,
		tree:      layout.NewTree(),
		rast:      NewRasterizer(src, glyphs, o.cellW, o.cellH, o.workers, log),
		comp:      NewCompositor(glyphs, o.cellW, o.cellH, log),
		overlay:   NewOverlayState(o.blinkInterval),
		cards:     make(chan Card, overlayCardBuffer),
		width:     width,
		height:    height,
		wallOp:    o.wallpaperOpacity,
		backOp:    o.backgroundOpacity,
		paneCards: make(map[layout.PaneID]Card),
		paneSizes: make(map[layout.PaneID][2]int),
		stop:      make(chan struct{}),
	}

	if o.wallpaperPath != "" {
		wp, err := LoadWallpaper(o.wallpaperPath, log)
		if err != nil {
			log.Warn("wallpaper unavailable", "path", o.wallpaperPath, "err", err)
		} else {
			e.wallpaper = wp
		}
	}

	if o.device != nil {
		p, err := present.NewPresenter(o.device, log)
		if err != nil {
			e.rast.Close()
			return nil, err
		}
		e.presenter = p
	} else {
		log.Info("no device configured, frames will not be presented")
	}

	e.sched = newFrameScheduler(func(t TriggerReason) { _ = e.renderFrame(t) })

	e.mu.Lock()
	e.syncPaneSizesLocked()
	e.mu.Unlock()

	e.loops.Add(1)
	go e.cardPump()

	if o.blinkInterval > 0 {
		e.loops.Add(1)
		go e.blinkLoop(o.blinkInterval)
	}

	return e, nil
}

// Request schedules a frame for the given trigger. Requests coalesce;
// the call never blocks.
func (e *Engine) Request(t TriggerReason) {
	e.sched.Request(t)
}

// Render renders one frame synchronously. Prefer Request for
// event-driven use; Render exists for hosts that drive their own frame
// clock.
func (e *Engine) Render(t TriggerReason) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	e.mu.Unlock()

	return e.renderFrame(t)
}

// OverlayCards returns the channel the assistant sends cards on. A card
// with an empty payload clears the pane's card. Cards are folded into
// overlay state as they arrive; Close drains pending cards so no
// sender is left parked.
func (e *Engine) OverlayCards() chan<- Card {
	return e.cards
}

// Split splits the focused pane on the given axis and returns the new
// viewport set. The new pane takes focus.
func (e *Engine) Split(axis layout.Axis) ([]layout.Viewport, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	if _, err := e.tree.SplitFocused(axis); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.scroll = 0
	vps := e.viewportsLocked()
	e.syncPaneSizesLocked()
	e.mu.Unlock()

	e.sched.Request(TriggerResize)
	return vps, nil
}

// ClosePane closes the focused pane; focus moves to its sibling. The
// last remaining pane cannot be closed.
func (e *Engine) ClosePane() ([]layout.Viewport, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	id, err := e.tree.CloseFocused()
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	delete(e.paneCards, id)
	delete(e.paneSizes, id)
	e.scroll = 0
	vps := e.viewportsLocked()
	e.syncPaneSizesLocked()
	e.mu.Unlock()

	e.sched.Request(TriggerResize)
	return vps, nil
}

// FocusNext moves focus to the next pane in traversal order.
func (e *Engine) FocusNext() []layout.Viewport {
	return e.refocus(func() { _ = e.tree.FocusNext() })
}

// FocusPrevious moves focus to the previous pane in traversal order.
func (e *Engine) FocusPrevious() []layout.Viewport {
	return e.refocus(func() { _ = e.tree.FocusPrevious() })
}

// FocusDirectional moves focus to the nearest pane in a screen
// direction.
func (e *Engine) FocusDirectional(dir layout.Direction) []layout.Viewport {
	return e.refocus(func() {
		e.mu.Lock()
		w, h, b := e.width, e.height, e.opts.borderPx
		e.mu.Unlock()
		_ = e.tree.FocusDirectional(dir, w, h, b)
	})
}

// refocus runs a focus mutation, resets scroll, and schedules a frame.
func (e *Engine) refocus(move func()) []layout.Viewport {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	move()

	e.mu.Lock()
	e.scroll = 0
	vps := e.viewportsLocked()
	e.mu.Unlock()

	e.sched.Request(TriggerInput)
	return vps
}

// Grow adjusts the focused pane's share of its nearest enclosing split
// on the given axis.
func (e *Engine) Grow(axis layout.Axis, delta float64) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	err := e.tree.GrowFocused(axis, delta)
	if err == nil {
		e.syncPaneSizesLocked()
	}
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.sched.Request(TriggerResize)
	return nil
}

// Scroll adjusts the focused pane's scrollback offset. Positive deltas
// scroll into history; the offset clamps to the available depth and to
// zero. Unfocused panes always show the live view.
func (e *Engine) Scroll(delta int) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	s := e.scroll + delta
	if s < 0 {
		s = 0
	}
	if s > e.lastDepth {
		s = e.lastDepth
	}
	changed := s != e.scroll
	e.scroll = s
	e.mu.Unlock()

	if changed {
		e.sched.Request(TriggerInput)
	}
}

// Resize changes the window dimensions and resizes every pane's grid.
func (e *Engine) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidSize
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	e.width = width
	e.height = height
	e.syncPaneSizesLocked()
	e.mu.Unlock()

	e.sched.Request(TriggerResize)
	return nil
}

// SetWallpaper loads a new wallpaper image. An empty path removes the
// wallpaper.
func (e *Engine) SetWallpaper(path string) error {
	var wp *Wallpaper
	if path != "" {
		var err error
		wp, err = LoadWallpaper(path, Logger())
		if err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.wallpaper = wp
	e.mu.Unlock()

	e.sched.Request(TriggerOverlay)
	return nil
}

// SetWallpaperOpacity sets the wallpaper dim factor in [0,1].
func (e *Engine) SetWallpaperOpacity(opacity float64) {
	e.mu.Lock()
	e.wallOp = clamp01(opacity)
	e.mu.Unlock()
	e.sched.Request(TriggerOverlay)
}

// SetBackgroundOpacity sets the final alpha multiplier in [0,1].
func (e *Engine) SetBackgroundOpacity(opacity float64) {
	e.mu.Lock()
	e.backOp = clamp01(opacity)
	e.mu.Unlock()
	e.sched.Request(TriggerOverlay)
}

// SetSelection sets the active text selection in the focused pane.
func (e *Engine) SetSelection(sel Selection) {
	e.mu.Lock()
	s := sel
	e.selection = &s
	e.mu.Unlock()
	e.sched.Request(TriggerOverlay)
}

// ClearSelection removes the active selection.
func (e *Engine) ClearSelection() {
	e.mu.Lock()
	e.selection = nil
	e.mu.Unlock()
	e.sched.Request(TriggerOverlay)
}

// SetCursorOverride forces the cursor visible regardless of the
// emulator's visibility flag, e.g. while a suggestion card is shown.
func (e *Engine) SetCursorOverride(on bool) {
	e.mu.Lock()
	e.overlay.SetOverride(on)
	e.mu.Unlock()
	e.sched.Request(TriggerOverlay)
}

// Viewports returns the current viewport set.
func (e *Engine) Viewports() []layout.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewportsLocked()
}

// Close shuts the engine down: the scheduler and blink ticker stop, the
// worker pool drains, and the presenter destroys the device. Safe to
// call once.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	close(e.stop)
	e.loops.Wait()
	e.sched.Close()
	e.rast.Close()
	if e.presenter != nil {
		return e.presenter.Close()
	}
	return nil
}

// blinkLoop flips the cursor blink phase on a wall-clock ticker and
// requests a frame only when the phase actually changed.
func (e *Engine) blinkLoop(interval time.Duration) {
	defer e.loops.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			if e.overlay.PhaseChanged() {
				e.sched.Request(TriggerBlink)
			}
		}
	}
}

// viewportsLocked computes viewports for the current window size.
// Caller holds e.mu.
func (e *Engine) viewportsLocked() []layout.Viewport {
	return e.tree.Viewports(e.width, e.height, e.opts.borderPx)
}

// syncPaneSizesLocked distributes the window's cell grid over the tree
// and tells the source about panes whose grid changed.
// Caller holds e.mu.
func (e *Engine) syncPaneSizesLocked() {
	cols := e.width / e.opts.cellW
	rows := e.height / e.opts.cellH
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	for _, gc := range e.tree.GridResize(cols, rows) {
		if gc.Cols < 1 {
			gc.Cols = 1
		}
		if gc.Rows < 1 {
			gc.Rows = 1
		}
		size := [2]int{gc.Cols, gc.Rows}
		if prev, ok := e.paneSizes[gc.PaneID]; ok && prev == size {
			continue
		}
		e.paneSizes[gc.PaneID] = size
		e.src.Resize(term.PaneID(gc.PaneID), gc.Cols, gc.Rows)
	}
}

// cardPump folds assistant cards into the per-pane card map as they
// arrive, so card senders never wait on a frame in flight. On shutdown
// it drains the channel before exiting so no sender stays parked.
func (e *Engine) cardPump() {
	defer e.loops.Done()
	for {
		select {
		case c := <-e.cards:
			e.foldCard(c)
			e.sched.Request(TriggerOverlay)
		case <-e.stop:
			for {
				select {
				case <-e.cards:
				default:
					return
				}
			}
		}
	}
}

// foldCard applies one card intent: an empty payload clears the pane's
// card, anything else replaces it.
func (e *Engine) foldCard(c Card) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c.Payload == "" {
		delete(e.paneCards, c.PaneID)
	} else {
		e.paneCards[c.PaneID] = c
	}
}

// renderFrame runs one pipeline pass. The render mutex serializes the
// scheduler loop and direct Render calls; the rasterizer requires a
// single caller at a time. A pure blink trigger takes the cheap path:
// the cached composed buffer is resubmitted with only the cursor quad
// recomputed.
func (e *Engine) renderFrame(t TriggerReason) error {
	e.renderMu.Lock()
	defer e.renderMu.Unlock()

	if t == TriggerBlink {
		if done, err := e.renderBlink(); done {
			return err
		}
	}

	log := Logger()
	start := time.Now()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}

	width, height := e.width, e.height
	scroll := e.scroll
	wallpaper := e.wallpaper
	wallOp, backOp := e.wallOp, e.backOp
	selection := e.selection
	vps := e.viewportsLocked()

	focusedID, haveFocus := e.tree.FocusedID()
	var card *Card
	if haveFocus {
		if c, ok := e.paneCards[focusedID]; ok {
			card = &c
		}
	}
	e.mu.Unlock()

	// Parallel pane rasterization with the frame barrier inside.
	buffers := e.rast.RasterizeAll(vps, scroll)

	// Focused snapshot for the cursor, selection, and card anchor.
	var focusedVP *layout.Viewport
	for i := range vps {
		if vps[i].Focused {
			focusedVP = &vps[i]
			break
		}
	}

	var snap term.Snapshot
	var haveSnap bool
	if focusedVP != nil {
		snap, haveSnap = e.src.Snapshot(term.PaneID(focusedVP.PaneID), scroll)
	}
	if haveSnap {
		e.mu.Lock()
		e.lastDepth = snap.ScrollbackDepth
		e.mu.Unlock()
	}

	in := ComposeInput{
		Width:             width,
		Height:            height,
		Wallpaper:         wallpaper,
		WallpaperOpacity:  wallOp,
		BackgroundOpacity: backOp,
		Viewports:         vps,
		Buffers:           buffers,
		Scroll:            scroll,
	}
	if card != nil && haveSnap {
		in.Card = card
		in.Cursor = snap.Cursor
	}
	composed := e.comp.Compose(in)

	frame := &present.Frame{
		Width:    width,
		Height:   height,
		Terminal: composed.Data(),
	}

	if haveSnap && focusedVP != nil {
		cs := e.overlay.Cursor(&snap, *focusedVP, scroll, e.opts.cellW, e.opts.cellH)
		if cs.Visible && cs.BlinkOn {
			frame.Cursor = []present.Quad{quadFrom(cs.Rect.ToNDC(width, height), cursorColor)}
		}
		if selection != nil {
			for _, r := range selection.Rects(&snap, *focusedVP, e.opts.cellW, e.opts.cellH) {
				frame.Selection = append(frame.Selection,
					quadFrom(r.ToNDC(width, height), selectionColor))
			}
		}
	}

	if focusedVP != nil && e.opts.borderPx > 0 && len(vps) > 1 {
		for _, r := range borderRects(*focusedVP, e.opts.borderPx, width, height) {
			frame.Borders = append(frame.Borders,
				quadFrom(r.ToNDC(width, height), e.opts.borderColor))
		}
	}

	e.last = frameCache{
		valid:     true,
		width:     width,
		height:    height,
		terminal:  frame.Terminal,
		selection: frame.Selection,
		borders:   frame.Borders,
		snap:      snap,
		haveSnap:  haveSnap,
		scroll:    scroll,
	}
	if focusedVP != nil {
		e.last.focusedVP = *focusedVP
		e.last.haveVP = true
	}

	if e.presenter != nil {
		if err := e.presenter.Submit(frame); err != nil {
			log.Warn("frame submit failed", "trigger", t, "err", err)
			return err
		}
	}
	log.Debug("frame rendered",
		"trigger", t,
		"panes", len(vps),
		"elapsed", time.Since(start))
	return nil
}

// renderBlink resubmits the cached composed buffer with a fresh cursor
// quad. Reports done=false when no usable cache exists and the caller
// must run a full pass instead. Caller holds renderMu.
func (e *Engine) renderBlink() (done bool, err error) {
	c := &e.last
	if !c.valid {
		return false, nil
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return true, ErrEngineClosed
	}
	if e.width != c.width || e.height != c.height {
		e.mu.Unlock()
		return false, nil
	}
	e.mu.Unlock()

	frame := &present.Frame{
		Width:     c.width,
		Height:    c.height,
		Terminal:  c.terminal,
		Selection: c.selection,
		Borders:   c.borders,
	}
	if c.haveSnap && c.haveVP {
		cs := e.overlay.Cursor(&c.snap, c.focusedVP, c.scroll, e.opts.cellW, e.opts.cellH)
		if cs.Visible && cs.BlinkOn {
			frame.Cursor = []present.Quad{quadFrom(cs.Rect.ToNDC(c.width, c.height), cursorColor)}
		}
	}

	if e.presenter != nil {
		if err := e.presenter.Submit(frame); err != nil {
			Logger().Warn("frame submit failed", "trigger", TriggerBlink, "err", err)
			return true, err
		}
	}
	return true, nil
}

// quadFrom converts an NDC rectangle and color into a draw quad.
func quadFrom(r NDCRect, c RGBA) present.Quad {
	return present.Quad{
		X: r.X, Y: r.Y, W: r.W, H: r.H,
		Color: [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)},
	}
}

// borderRects returns the four focus-border strips around a viewport,
// clipped to the window.
func borderRects(vp layout.Viewport, px, winW, winH int) []PixelRect {
	x0 := vp.X - px
	y0 := vp.Y - px
	x1 := vp.X + vp.W + px
	y1 := vp.Y + vp.H + px
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > winW {
		x1 = winW
	}
	if y1 > winH {
		y1 = winH
	}
	w := x1 - x0
	h := y1 - y0
	return []PixelRect{
		{X: x0, Y: y0, W: w, H: px},          // top
		{X: x0, Y: y1 - px, W: w, H: px},     // bottom
		{X: x0, Y: y0, W: px, H: h},          // left
		{X: x1 - px, Y: y0, W: px, H: h},     // right
	}
}

// placeholderGlyphs renders every rune as an outlined box. It stands in
// when no font is configured so layout and compositing stay testable.
type placeholderGlyphs struct{}

var _ glyph.Source = placeholderGlyphs{}

func (placeholderGlyphs) Rasterize(r rune, bold, italic bool, cellW, cellH int) (glyph.Bitmap, error) {
	return glyph.Placeholder(cellW, cellH), nil
}
