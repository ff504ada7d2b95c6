package velaterm

import (
	"time"

	"github.com/velaterm/velaterm/glyph"
	"github.com/velaterm/velaterm/present"
)

// EngineOption configures an Engine during creation.
//
// Example:
//
//	// Defaults: 8x16 cells, 2px borders, opaque background
//	eng, err := velaterm.NewEngine(src, 800, 600)
//
//	// Custom glyph source and GPU device
//	eng, err := velaterm.NewEngine(src, 800, 600,
//	    velaterm.WithGlyphSource(faces),
//	    velaterm.WithDevice(dev))
type EngineOption func(*engineOptions)

// engineOptions holds optional configuration for Engine creation.
type engineOptions struct {
	workers           int
	cellW, cellH      int
	borderPx          int
	borderColor       RGBA
	wallpaperPath     string
	wallpaperOpacity  float64
	backgroundOpacity float64
	blinkInterval     time.Duration
	glyphs            glyph.Source
	device            present.Device
}

// defaultEngineOptions returns the default engine options.
func defaultEngineOptions() engineOptions {
	return engineOptions{
		workers:           0, // worker pool picks GOMAXPROCS
		cellW:             8,
		cellH:             16,
		borderPx:          2,
		borderColor:       RGB(0.35, 0.55, 0.85),
		wallpaperOpacity:  1.0,
		backgroundOpacity: 1.0,
		blinkInterval:     500 * time.Millisecond,
	}
}

// WithWorkers sets the rasterizer worker pool size.
// Values <= 0 select GOMAXPROCS.
func WithWorkers(n int) EngineOption {
	return func(o *engineOptions) {
		o.workers = n
	}
}

// WithCellSize sets the terminal cell dimensions in pixels.
func WithCellSize(w, h int) EngineOption {
	return func(o *engineOptions) {
		if w > 0 && h > 0 {
			o.cellW = w
			o.cellH = h
		}
	}
}

// WithBorder sets the pane border thickness and the focus border color.
func WithBorder(px int, color RGBA) EngineOption {
	return func(o *engineOptions) {
		if px >= 0 {
			o.borderPx = px
		}
		o.borderColor = color
	}
}

// WithWallpaper sets the wallpaper image path, loaded during engine
// creation. A load failure is logged and the engine starts without a
// wallpaper.
func WithWallpaper(path string) EngineOption {
	return func(o *engineOptions) {
		o.wallpaperPath = path
	}
}

// WithWallpaperOpacity sets the wallpaper dim factor in [0,1].
func WithWallpaperOpacity(opacity float64) EngineOption {
	return func(o *engineOptions) {
		o.wallpaperOpacity = clamp01(opacity)
	}
}

// WithBackgroundOpacity sets the final alpha multiplier in [0,1],
// used for translucent window backgrounds.
func WithBackgroundOpacity(opacity float64) EngineOption {
	return func(o *engineOptions) {
		o.backgroundOpacity = clamp01(opacity)
	}
}

// WithBlinkInterval sets the cursor blink half-period.
// Zero or negative disables blinking.
func WithBlinkInterval(d time.Duration) EngineOption {
	return func(o *engineOptions) {
		o.blinkInterval = d
	}
}

// WithGlyphSource sets the glyph rasterization source. Without one the
// engine falls back to placeholder boxes for every rune.
func WithGlyphSource(src glyph.Source) EngineOption {
	return func(o *engineOptions) {
		o.glyphs = src
	}
}

// WithDevice sets the presentation device.
// Use this for dependency injection of the GPU device:
//
//	dev, err := present.NewHALDevice(app.GPUContextProvider(), logger)
//	eng, err := velaterm.NewEngine(src, w, h, velaterm.WithDevice(dev))
//
// Without a device the engine composes frames but does not present
// them; useful for headless operation and tests.
func WithDevice(dev present.Device) EngineOption {
	return func(o *engineOptions) {
		o.device = dev
	}
}
