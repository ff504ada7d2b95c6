package velaterm

import "image/color"

// RGBA represents a color with red, green, blue, and alpha components.
// Each component is in the range [0, 1]. Values are straight (not
// premultiplied); premultiplication happens when a color is written into
// a Pixmap.
type RGBA struct {
	R, G, B, A float64
}

// Common colors.
var (
	Black       = RGBA{0, 0, 0, 1}
	White       = RGBA{1, 1, 1, 1}
	Transparent = RGBA{0, 0, 0, 0}
)

// RGB creates an opaque color from RGB components.
func RGB(r, g, b float64) RGBA {
	return RGBA{R: r, G: g, B: b, A: 1.0}
}

// RGBA implements the color.Color interface.
func (c RGBA) RGBA() (r, g, b, a uint32) {
	r = uint32(clamp01(c.R) * 65535)
	g = uint32(clamp01(c.G) * 65535)
	b = uint32(clamp01(c.B) * 65535)
	a = uint32(clamp01(c.A) * 65535)
	return
}

// FromColor converts a standard color.Color to RGBA.
func FromColor(c color.Color) RGBA {
	r, g, b, a := c.RGBA()
	return RGBA{
		R: float64(r) / 65535,
		G: float64(g) / 65535,
		B: float64(b) / 65535,
		A: float64(a) / 65535,
	}
}

// WithAlpha returns the color with its alpha replaced.
func (c RGBA) WithAlpha(a float64) RGBA {
	c.A = a
	return c
}

// premulBytes returns the color as premultiplied 8-bit channels, the
// format stored in Pixmap data.
func (c RGBA) premulBytes() (r, g, b, a byte) {
	al := clamp01(c.A)
	r = byte(clamp01(c.R)*al*255 + 0.5)
	g = byte(clamp01(c.G)*al*255 + 0.5)
	b = byte(clamp01(c.B)*al*255 + 0.5)
	a = byte(al*255 + 0.5)
	return
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
