// Package present submits composed frames to the GPU and presents them
// in submission order.
//
// The package separates two concerns:
//
//   - Device: a narrow abstraction over GPU resources. The production
//     implementation (HALDevice) drives gogpu/wgpu HAL; tests use a
//     recording fake.
//   - Presenter: a single-goroutine loop that owns the Device. All GPU
//     calls happen on that goroutine, which is locked to its OS thread
//     because native GPU backends require thread affinity.
//
// Frames flow through a FIFO channel, so presentation order always
// matches submission order. Each frame carries the composed terminal
// pixels plus overlay draw lists; the presenter encodes them in a fixed
// layer order (wallpaper, terminal, selection, cursor, borders).
package present

import (
	"errors"
)

// Package errors.
var (
	// ErrDeviceLost is returned when the GPU device has been lost and
	// resources must be recreated.
	ErrDeviceLost = errors.New("present: device lost")

	// ErrClosed is returned when submitting to a closed presenter.
	ErrClosed = errors.New("present: presenter closed")

	// ErrNilDevice is returned when constructing a presenter without a device.
	ErrNilDevice = errors.New("present: nil device")

	// ErrInvalidFrame is returned for frames with bad dimensions or a
	// pixel buffer that does not match them.
	ErrInvalidFrame = errors.New("present: invalid frame")
)

// Layer identifies a draw layer within a frame.
//
// Layers are encoded in ascending order, so the numeric values define
// the stacking: wallpaper at the back, pane borders at the front.
type Layer int

const (
	// LayerWallpaper is the backmost layer. It is usually empty because
	// the compositor bakes the wallpaper into the terminal pixels, but a
	// device may still receive it when wallpaper is drawn GPU-side.
	LayerWallpaper Layer = iota

	// LayerTerminal is the composed terminal content texture.
	LayerTerminal

	// LayerSelection holds translucent selection highlight quads.
	LayerSelection

	// LayerCursor holds the cursor quad. Empty when the cursor is
	// hidden or in the off blink phase.
	LayerCursor

	// LayerBorder holds pane border quads.
	LayerBorder
)

// String returns the layer name for logging.
func (l Layer) String() string {
	switch l {
	case LayerWallpaper:
		return "wallpaper"
	case LayerTerminal:
		return "terminal"
	case LayerSelection:
		return "selection"
	case LayerCursor:
		return "cursor"
	case LayerBorder:
		return "border"
	default:
		return "unknown"
	}
}

// drawLayers lists every layer in encode order.
var drawLayers = [...]Layer{
	LayerWallpaper,
	LayerTerminal,
	LayerSelection,
	LayerCursor,
	LayerBorder,
}

// Quad is a solid-color rectangle in normalized device coordinates.
//
// Color is straight (non-premultiplied) RGBA in [0,1]; the overlay
// pipelines blend with source-over.
type Quad struct {
	// X, Y, W, H bound the quad in NDC. X and Y name the top-left
	// corner; W and H extend right and down.
	X, Y, W, H float32

	// Color is the fill color.
	Color [4]float32
}

// Frame is one composed frame ready for presentation.
//
// The presenter takes ownership of the frame on Submit; callers must
// not mutate it afterwards.
type Frame struct {
	// Width and Height are the frame dimensions in pixels.
	Width, Height int

	// Terminal is the composed terminal content, premultiplied RGBA,
	// Width*Height*4 bytes. The wallpaper and overlay cards are already
	// blended in.
	Terminal []uint8

	// Selection, Cursor and Borders are overlay draw lists, drawn above
	// the terminal texture in that order.
	Selection []Quad
	Cursor    []Quad
	Borders   []Quad
}

// Validate checks frame dimensions against the pixel buffer.
func (f *Frame) Validate() error {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return ErrInvalidFrame
	}
	if len(f.Terminal) != f.Width*f.Height*4 {
		return ErrInvalidFrame
	}
	return nil
}

// quads returns the draw list for a layer.
func (f *Frame) quads(layer Layer) []Quad {
	switch layer {
	case LayerSelection:
		return f.Selection
	case LayerCursor:
		return f.Cursor
	case LayerBorder:
		return f.Borders
	default:
		return nil
	}
}

// Device abstracts the GPU resources the presenter needs.
//
// Implementations are NOT required to be safe for concurrent use; the
// presenter confines all calls to its own goroutine.
//
// A device reports loss by returning ErrDeviceLost (possibly wrapped)
// from BeginFrame, UploadTerminal, DrawLayer or EndFrame. The presenter
// then calls Recover and retries the frame once.
type Device interface {
	// Configure sizes the swapchain and backing texture. Called before
	// the first frame and again whenever the frame dimensions change.
	Configure(width, height int) error

	// BeginFrame starts encoding a frame.
	BeginFrame() error

	// UploadTerminal uploads the composed terminal pixels for this frame.
	UploadTerminal(width, height int, pixels []uint8) error

	// DrawLayer encodes one layer. For LayerTerminal the quads slice is
	// empty and the device draws the uploaded texture full-screen;
	// overlay layers receive their quad lists.
	DrawLayer(layer Layer, quads []Quad) error

	// EndFrame submits the encoded commands and presents.
	EndFrame() error

	// Recover rebuilds pipelines and textures after device loss.
	Recover() error

	// Destroy releases all GPU resources.
	Destroy()
}
