package velaterm

import (
	"sync"
	"time"

	"github.com/velaterm/velaterm/layout"
	"github.com/velaterm/velaterm/term"
)

// PixelRect is an axis-aligned rectangle in window pixel coordinates.
type PixelRect struct {
	X, Y, W, H int
}

// NDCRect is a rectangle in normalized device coordinates, the form the
// presenter uploads into the cursor uniform buffer. X/Y name the
// top-left corner; Y grows downward in pixel space and is flipped here.
type NDCRect struct {
	X, Y, W, H float32
}

// ToNDC converts a pixel rectangle to normalized device coordinates for
// a window of the given pixel size.
func (r PixelRect) ToNDC(windowW, windowH int) NDCRect {
	fw := float32(windowW)
	fh := float32(windowH)
	return NDCRect{
		X: float32(r.X)/fw*2 - 1,
		Y: 1 - float32(r.Y)/fh*2,
		W: float32(r.W) / fw * 2,
		H: float32(r.H) / fh * 2,
	}
}

// CursorState is the per-frame cursor draw state handed to the
// presenter as geometry, never baked into the CPU frame buffer.
type CursorState struct {
	PaneID  layout.PaneID
	Rect    PixelRect
	Shape   term.CursorShape
	Visible bool
	BlinkOn bool
}

// OverlayState tracks cursor blink phase and visibility overrides
// across frames. Cursor geometry itself is recomputed fresh each frame
// from the snapshot and viewport.
//
// OverlayState is safe for concurrent use; the blink ticker and the
// render path touch it from different goroutines.
type OverlayState struct {
	blinkInterval time.Duration
	epoch         time.Time

	mu        sync.Mutex
	lastPhase bool

	// override forces the cursor visible regardless of the emulator's
	// visibility mode flag (used while the assistant card is pending).
	override bool

	// now is stubbed in tests.
	now func() time.Time
}

// NewOverlayState creates an overlay state with the given blink
// interval. A non-positive interval disables blinking (phase stays on).
func NewOverlayState(blinkInterval time.Duration) *OverlayState {
	return &OverlayState{
		blinkInterval: blinkInterval,
		epoch:         time.Now(),
		now:           time.Now,
	}
}

// SetOverride forces cursor display independent of the emulator's
// cursor-visibility mode flag.
func (o *OverlayState) SetOverride(on bool) {
	o.mu.Lock()
	o.override = on
	o.mu.Unlock()
}

// BlinkPhase returns the current wall-clock blink phase. The phase
// toggles on a fixed interval independent of frame rate.
func (o *OverlayState) BlinkPhase() bool {
	if o.blinkInterval <= 0 {
		return true
	}
	n := o.now().Sub(o.epoch) / o.blinkInterval
	return n%2 == 0
}

// PhaseChanged reports whether the blink phase flipped since the last
// call. A flip requires only a small uniform re-upload, not a frame
// recompute; the engine uses this to decide whether the blink timer
// needs to trigger a present.
func (o *OverlayState) PhaseChanged() bool {
	phase := o.BlinkPhase()
	o.mu.Lock()
	changed := phase != o.lastPhase
	o.lastPhase = phase
	o.mu.Unlock()
	return changed
}

// Cursor computes the cursor draw state for the focused pane.
//
// Visibility is false when the emulator's cursor-visibility flag is
// unset and no override is active, or when the pane is scrolled away
// from the live line. The returned rectangle is in window pixels,
// positioned at the pane's viewport offset.
func (o *OverlayState) Cursor(snap *term.Snapshot, vp layout.Viewport, scroll, cellW, cellH int) CursorState {
	o.mu.Lock()
	override := o.override
	o.mu.Unlock()
	visible := (snap.Modes.CursorVisible || override) && scroll == 0

	x := vp.X + snap.Cursor.Col*cellW
	y := vp.Y + snap.Cursor.Line*cellH

	var rect PixelRect
	switch snap.CursorShape {
	case term.CursorBeam:
		rect = PixelRect{X: x, Y: y, W: 2, H: cellH}
	case term.CursorUnderline:
		rect = PixelRect{X: x, Y: y + cellH - 2, W: cellW, H: 2}
	default:
		rect = PixelRect{X: x, Y: y, W: cellW, H: cellH}
	}

	blinkOn := true
	if snap.Modes.CursorBlink {
		blinkOn = o.BlinkPhase()
	}

	return CursorState{
		PaneID:  vp.PaneID,
		Rect:    rect,
		Shape:   snap.CursorShape,
		Visible: visible,
		BlinkOn: blinkOn,
	}
}
