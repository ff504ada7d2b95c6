// Command velaterm-demo renders one frame of the multi-pane engine
// without a window: pane content comes from a canned terminal source,
// and the composed terminal layer is written out as a PNG.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/velaterm/velaterm"
	"github.com/velaterm/velaterm/layout"
	"github.com/velaterm/velaterm/present"
	"github.com/velaterm/velaterm/term"
)

func main() {
	var (
		width  = flag.Int("width", 1024, "frame width in pixels")
		height = flag.Int("height", 640, "frame height in pixels")
		output = flag.String("output", "velaterm-demo.png", "output file")
	)
	flag.Parse()

	velaterm.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	src := newDemoSource()
	dev := &pngDevice{}
	eng, err := velaterm.NewEngine(src, *width, *height,
		velaterm.WithDevice(dev),
		velaterm.WithBlinkInterval(0),
		velaterm.WithWallpaperOpacity(0.6))
	if err != nil {
		log.Fatalf("create engine: %v", err)
	}

	// Three panes: a vertical split, then a horizontal split of the
	// right half, with a suggestion card over the focused pane.
	if _, err := eng.Split(layout.Vertical); err != nil {
		log.Fatalf("split: %v", err)
	}
	if _, err := eng.Split(layout.Horizontal); err != nil {
		log.Fatalf("split: %v", err)
	}
	eng.OverlayCards() <- velaterm.Card{
		PaneID:  3,
		Kind:    velaterm.CardSuggestion,
		Payload: "git status --short",
	}
	// Card intents fold asynchronously; let this one land before the
	// final frame renders.
	time.Sleep(50 * time.Millisecond)
	eng.SetSelection(velaterm.Selection{
		Start: term.Point{Line: 1, Col: 2},
		End:   term.Point{Line: 2, Col: 12},
	})

	if err := eng.Render(velaterm.TriggerOutput); err != nil {
		log.Fatalf("render: %v", err)
	}
	// Close drains the presenter queue before returning.
	if err := eng.Close(); err != nil {
		log.Fatalf("close: %v", err)
	}

	if err := dev.writePNG(*output); err != nil {
		log.Fatalf("write %s: %v", *output, err)
	}
	fmt.Printf("wrote %s (%dx%d)\n", *output, *width, *height)
}

// demoSource serves generated shell-session content for every pane.
type demoSource struct {
	mu    sync.Mutex
	sizes map[term.PaneID][2]int
}

func newDemoSource() *demoSource {
	return &demoSource{sizes: make(map[term.PaneID][2]int)}
}

func (d *demoSource) Resize(id term.PaneID, cols, rows int) {
	d.mu.Lock()
	d.sizes[id] = [2]int{cols, rows}
	d.mu.Unlock()
}

func (d *demoSource) Snapshot(id term.PaneID, scroll int) (term.Snapshot, bool) {
	d.mu.Lock()
	size, ok := d.sizes[id]
	d.mu.Unlock()
	if !ok {
		return term.Snapshot{}, false
	}

	cols, rows := size[0], size[1]
	snap := term.Snapshot{
		Cols:   cols,
		Rows:   rows,
		Cursor: term.Point{Line: 3, Col: 2},
		Modes:  term.ModeFlags{CursorVisible: true},
	}
	text := []string{
		fmt.Sprintf("pane %d $ make build", id),
		"go build ./...",
		"ok  all packages compile",
		"$ ",
	}
	for r := 0; r < rows; r++ {
		row := make([]term.Cell, cols)
		for c := range row {
			row[c] = term.Cell{Rune: ' '}
		}
		if r < len(text) {
			for i, ch := range text[r] {
				if i >= cols {
					break
				}
				row[i] = term.Cell{Rune: ch}
			}
		}
		snap.Lines = append(snap.Lines, row)
	}
	return snap, true
}

// pngDevice captures the uploaded terminal layer instead of driving a
// GPU. Overlay quads are dropped; they only exist on the real device.
type pngDevice struct {
	mu     sync.Mutex
	w, h   int
	pixels []uint8
}

func (d *pngDevice) Configure(w, h int) error { return nil }
func (d *pngDevice) BeginFrame() error        { return nil }

func (d *pngDevice) UploadTerminal(w, h int, pixels []uint8) error {
	d.mu.Lock()
	d.w, d.h = w, h
	d.pixels = append(d.pixels[:0], pixels...)
	d.mu.Unlock()
	return nil
}

func (d *pngDevice) DrawLayer(present.Layer, []present.Quad) error { return nil }

func (d *pngDevice) EndFrame() error { return nil }
func (d *pngDevice) Recover() error  { return nil }
func (d *pngDevice) Destroy()        {}

func (d *pngDevice) writePNG(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pixels == nil {
		return fmt.Errorf("no frame captured")
	}

	img := image.NewRGBA(image.Rect(0, 0, d.w, d.h))
	for y := 0; y < d.h; y++ {
		for x := 0; x < d.w; x++ {
			i := (y*d.w + x) * 4
			img.SetRGBA(x, y, color.RGBA{
				R: d.pixels[i+0],
				G: d.pixels[i+1],
				B: d.pixels[i+2],
				A: d.pixels[i+3],
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
