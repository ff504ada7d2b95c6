// Package glyph provides the default character-to-bitmap provider for
// the rasterizer.
//
// The renderer treats glyph rasterization as an external capability: any
// implementation of Source can be injected. FaceSource is the built-in
// implementation. It parses the font twice on purpose: once with
// go-text/typesetting, whose read-only font.Font answers coverage and
// advance queries cheaply, and once with x/image's opentype package,
// which rasterizes glyph outlines into alpha masks. Rasterized cells are
// kept in a sharded LRU cache shared by all rasterizer workers.
package glyph

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/go-text/typesetting/font"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/velaterm/velaterm/cache"
)

// ErrMissingGlyph is returned when the font has no glyph for a rune.
// The rasterizer falls back to a placeholder box; a frame is never
// aborted for a missing glyph.
var ErrMissingGlyph = errors.New("glyph: no glyph for rune")

// Bitmap is a rasterized cell glyph: an alpha coverage mask sized to the
// cell, plus the advance the shaper reported for the glyph.
type Bitmap struct {
	W, H    int
	Alpha   []uint8
	Advance float64
}

// Source rasterizes a single character into a cell-sized alpha bitmap.
//
// Implementations must be safe for concurrent use: the rasterizer calls
// Rasterize from multiple workers at once.
type Source interface {
	Rasterize(r rune, bold, italic bool, cellW, cellH int) (Bitmap, error)
}

// cacheKey packs (rune, style bits, cell size) into one uint64 so the
// bitmap cache can use an identity hash.
func cacheKey(r rune, bold, italic bool, cellW, cellH int) uint64 {
	k := uint64(r) << 24
	if bold {
		k |= 1 << 23
	}
	if italic {
		k |= 1 << 22
	}
	k |= uint64(cellW&0x7FF) << 11
	k |= uint64(cellH & 0x7FF)
	return k
}

// FaceSource is the built-in Source backed by a single TTF/OTF font.
//
// Thread safety: FaceSource is safe for concurrent use. The typesetting
// font.Font is read-only; the x/image face is not concurrent-safe and is
// guarded by a mutex, but most lookups are absorbed by the bitmap cache
// before reaching it.
type FaceSource struct {
	meta *font.Font
	sfnt *sfnt.Font

	mu    sync.Mutex
	faces map[int]xfont.Face // keyed by pixel size

	bitmaps *cache.Sharded[uint64, Bitmap]
}

var _ Source = (*FaceSource)(nil)

// NewFaceSource parses font data and returns a ready Source.
func NewFaceSource(data []byte) (*FaceSource, error) {
	goTextFace, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("glyph: parse font: %w", err)
	}
	sf, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("glyph: parse font outlines: %w", err)
	}
	return &FaceSource{
		meta:    goTextFace.Font,
		sfnt:    sf,
		faces:   make(map[int]xfont.Face),
		bitmaps: cache.NewSharded[uint64, Bitmap](cache.DefaultCapacity, cache.Uint64Hasher),
	}, nil
}

// Rasterize renders r into a cellW x cellH alpha mask. Bold is
// approximated by double-striking one pixel to the right; italic is
// left to the font (no synthetic shear).
func (f *FaceSource) Rasterize(r rune, bold, italic bool, cellW, cellH int) (Bitmap, error) {
	if cellW <= 0 || cellH <= 0 {
		return Bitmap{}, fmt.Errorf("glyph: invalid cell size %dx%d", cellW, cellH)
	}

	// Coverage check against the read-only font before touching the
	// rasterizing face.
	goTextFace := font.NewFace(f.meta)
	gid, ok := goTextFace.NominalGlyph(r)
	if !ok {
		return Bitmap{}, ErrMissingGlyph
	}

	key := cacheKey(r, bold, italic, cellW, cellH)
	if bm, ok := f.bitmaps.Get(key); ok {
		return bm, nil
	}

	bm, err := f.rasterizeSlow(r, gid, bold, cellW, cellH)
	if err != nil {
		return Bitmap{}, err
	}
	f.bitmaps.Set(key, bm)
	return bm, nil
}

// rasterizeSlow draws the glyph through the x/image face. Called on
// cache misses only.
func (f *FaceSource) rasterizeSlow(r rune, gid font.GID, bold bool, cellW, cellH int) (Bitmap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	face, err := f.faceLocked(cellH)
	if err != nil {
		return Bitmap{}, err
	}

	metrics := face.Metrics()
	mask := image.NewAlpha(image.Rect(0, 0, cellW, cellH))

	dr, srcMask, maskp, _, ok := face.Glyph(
		fixed.Point26_6{X: 0, Y: metrics.Ascent}, r)
	if !ok {
		return Bitmap{}, ErrMissingGlyph
	}
	drawMask(mask, dr, srcMask, maskp)
	if bold {
		// Double strike one pixel right.
		dr2 := dr.Add(image.Pt(1, 0))
		drawMask(mask, dr2, srcMask, maskp)
	}

	// Advance from the typesetting metrics, scaled to pixels. The
	// upem-normalized advance times the pixel size gives the cell
	// advance the compositor aligns to.
	goTextFace := font.NewFace(f.meta)
	adv := float64(goTextFace.HorizontalAdvance(gid)) / float64(f.meta.Upem()) * float64(cellH)

	return Bitmap{W: cellW, H: cellH, Alpha: mask.Pix, Advance: adv}, nil
}

// faceLocked returns the cached x/image face for a pixel size.
// Caller holds f.mu.
func (f *FaceSource) faceLocked(size int) (xfont.Face, error) {
	if face, ok := f.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.sfnt, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: xfont.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("glyph: create face: %w", err)
	}
	f.faces[size] = face
	return face, nil
}

// drawMask composites srcMask's rectangle dr into dst, clipping to dst
// bounds, taking the max of overlapping coverage.
func drawMask(dst *image.Alpha, dr image.Rectangle, srcMask image.Image, maskp image.Point) {
	clipped := dr.Intersect(dst.Bounds())
	for y := clipped.Min.Y; y < clipped.Max.Y; y++ {
		for x := clipped.Min.X; x < clipped.Max.X; x++ {
			sx := maskp.X + (x - dr.Min.X)
			sy := maskp.Y + (y - dr.Min.Y)
			_, _, _, a := srcMask.At(sx, sy).RGBA()
			cov := uint8(a >> 8)
			i := dst.PixOffset(x, y)
			if cov > dst.Pix[i] {
				dst.Pix[i] = cov
			}
		}
	}
}

// Placeholder returns the fallback bitmap drawn when a glyph is missing:
// an outlined box inset one pixel from the cell edge.
func Placeholder(cellW, cellH int) Bitmap {
	alpha := make([]uint8, cellW*cellH)
	for y := 1; y < cellH-1; y++ {
		for x := 1; x < cellW-1; x++ {
			if y == 1 || y == cellH-2 || x == 1 || x == cellW-2 {
				alpha[y*cellW+x] = 0xFF
			}
		}
	}
	return Bitmap{W: cellW, H: cellH, Alpha: alpha, Advance: float64(cellW)}
}
