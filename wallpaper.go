package velaterm

import (
	"fmt"
	"image"
	_ "image/jpeg" // wallpaper decoders
	_ "image/png"
	"log/slog"
	"os"

	"golang.org/x/image/draw"

	"github.com/velaterm/velaterm/cache"
)

// scaledCapacity bounds cached wallpaper scales per shard. A session
// only ever sees a handful of window sizes.
const scaledCapacity = 4

// Wallpaper holds a decoded wallpaper image scaled to the window, ready
// for the compositor. Decoding and scaling happen off the render path:
// the compositor only ever samples a prepared buffer.
type Wallpaper struct {
	path   string
	src    image.Image
	scaled *cache.Sharded[string, *Pixmap]
	log    *slog.Logger
}

// LoadWallpaper decodes the image at path. A decode failure is an
// ordinary error: the engine logs it and continues without a wallpaper.
func LoadWallpaper(path string, log *slog.Logger) (*Wallpaper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("velaterm: open wallpaper: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("velaterm: decode wallpaper %q: %w", path, err)
	}
	return newWallpaper(path, img, log), nil
}

func newWallpaper(path string, img image.Image, log *slog.Logger) *Wallpaper {
	return &Wallpaper{
		path:   path,
		src:    img,
		scaled: cache.NewSharded[string, *Pixmap](scaledCapacity, cache.StringHasher),
		log:    log,
	}
}

// Path returns the image path the wallpaper was loaded from.
func (w *Wallpaper) Path() string { return w.path }

// Scaled returns the wallpaper scaled to exactly width x height pixels.
// Scales are cached by (path, size), so resizing back to a recent
// window size costs one cache lookup.
func (w *Wallpaper) Scaled(width, height int) *Pixmap {
	key := fmt.Sprintf("%s|%dx%d", w.path, width, height)
	return w.scaled.GetOrCreate(key, func() *Pixmap {
		return w.rescale(width, height)
	})
}

func (w *Wallpaper) rescale(width, height int) *Pixmap {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), w.src, w.src.Bounds(), draw.Src, nil)

	pm := NewPixmap(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := dst.PixOffset(x, y)
			pm.SetPixel(x, y, RGBA{
				R: float64(dst.Pix[i+0]) / 255,
				G: float64(dst.Pix[i+1]) / 255,
				B: float64(dst.Pix[i+2]) / 255,
				A: float64(dst.Pix[i+3]) / 255,
			})
		}
	}
	w.log.Debug("wallpaper rescaled", "path", w.path, "w", width, "h", height)
	return pm
}
