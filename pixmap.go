package velaterm

// Pixmap represents a rectangular pixel buffer.
//
// Pixels are stored as premultiplied RGBA, 4 bytes per pixel, row-major.
// Premultiplied storage lets the compositor stack layers with plain
// source-over arithmetic and lets pane buffers be copied into the frame
// without a blend step.
type Pixmap struct {
	width  int
	height int
	data   []uint8
}

// NewPixmap creates a new pixmap with the given dimensions.
// All pixels start fully transparent.
func NewPixmap(width, height int) *Pixmap {
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// Width returns the width of the pixmap.
func (p *Pixmap) Width() int { return p.width }

// Height returns the height of the pixmap.
func (p *Pixmap) Height() int { return p.height }

// Data returns the raw pixel data (premultiplied RGBA).
func (p *Pixmap) Data() []uint8 { return p.data }

// SetPixel sets the color of a single pixel. Out-of-bounds writes are
// silently ignored.
func (p *Pixmap) SetPixel(x, y int, c RGBA) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	r, g, b, a := c.premulBytes()
	i := (y*p.width + x) * 4
	p.data[i+0] = r
	p.data[i+1] = g
	p.data[i+2] = b
	p.data[i+3] = a
}

// GetPixel returns the color of a single pixel, unpremultiplied.
// Out-of-bounds reads return Transparent.
func (p *Pixmap) GetPixel(x, y int) RGBA {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return Transparent
	}
	i := (y*p.width + x) * 4
	a := float64(p.data[i+3]) / 255
	if a == 0 {
		return Transparent
	}
	return RGBA{
		R: float64(p.data[i+0]) / 255 / a,
		G: float64(p.data[i+1]) / 255 / a,
		B: float64(p.data[i+2]) / 255 / a,
		A: a,
	}
}

// Clear fills the entire pixmap with a color.
func (p *Pixmap) Clear(c RGBA) {
	r, g, b, a := c.premulBytes()
	for i := 0; i < len(p.data); i += 4 {
		p.data[i+0] = r
		p.data[i+1] = g
		p.data[i+2] = b
		p.data[i+3] = a
	}
}

// FillRect fills the rectangle [x, x+w) x [y, y+h) with a color.
// The rectangle is clipped to the pixmap bounds.
func (p *Pixmap) FillRect(x, y, w, h int, c RGBA) {
	x0, y0, x1, y1 := clipRect(x, y, w, h, p.width, p.height)
	if x0 >= x1 || y0 >= y1 {
		return
	}
	r, g, b, a := c.premulBytes()
	for yy := y0; yy < y1; yy++ {
		i := (yy*p.width + x0) * 4
		for xx := x0; xx < x1; xx++ {
			p.data[i+0] = r
			p.data[i+1] = g
			p.data[i+2] = b
			p.data[i+3] = a
			i += 4
		}
	}
}

// Copy copies src into p with its top-left corner at (dx, dy).
// This is a straight memory copy with no blending: source pixels replace
// destination pixels. The source is clipped to the destination bounds.
func (p *Pixmap) Copy(src *Pixmap, dx, dy int) {
	if src == nil {
		return
	}
	for sy := 0; sy < src.height; sy++ {
		ty := dy + sy
		if ty < 0 || ty >= p.height {
			continue
		}
		sx0 := 0
		tx0 := dx
		if tx0 < 0 {
			sx0 = -tx0
			tx0 = 0
		}
		n := src.width - sx0
		if room := p.width - tx0; n > room {
			n = room
		}
		if n <= 0 {
			continue
		}
		si := (sy*src.width + sx0) * 4
		ti := (ty*p.width + tx0) * 4
		copy(p.data[ti:ti+n*4], src.data[si:si+n*4])
	}
}

// BlendPixel composites c over the existing pixel at (x, y) using
// premultiplied source-over arithmetic: S + D*(1-Sa).
func (p *Pixmap) BlendPixel(x, y int, c RGBA) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	sr, sg, sb, sa := c.premulBytes()
	if sa == 0 {
		return
	}
	i := (y*p.width + x) * 4
	if sa == 255 {
		p.data[i+0] = sr
		p.data[i+1] = sg
		p.data[i+2] = sb
		p.data[i+3] = sa
		return
	}
	invSa := 255 - sa
	p.data[i+0] = addDiv255(sr, mulDiv255(p.data[i+0], invSa))
	p.data[i+1] = addDiv255(sg, mulDiv255(p.data[i+1], invSa))
	p.data[i+2] = addDiv255(sb, mulDiv255(p.data[i+2], invSa))
	p.data[i+3] = addDiv255(sa, mulDiv255(p.data[i+3], invSa))
}

// BlendRect composites a solid color over the rectangle [x, x+w) x [y, y+h).
func (p *Pixmap) BlendRect(x, y, w, h int, c RGBA) {
	x0, y0, x1, y1 := clipRect(x, y, w, h, p.width, p.height)
	for yy := y0; yy < y1; yy++ {
		for xx := x0; xx < x1; xx++ {
			p.BlendPixel(xx, yy, c)
		}
	}
}

// ScaleAlpha multiplies every channel by factor in [0, 1]. Because the
// data is premultiplied, scaling the color channels together with alpha
// keeps the buffer self-consistent. The compositor uses this for the
// overall background-opacity pass.
func (p *Pixmap) ScaleAlpha(factor float64) {
	if factor >= 1 {
		return
	}
	f := clamp01(factor)
	s := byte(f*255 + 0.5)
	for i := range p.data {
		p.data[i] = mulDiv255(p.data[i], s)
	}
}

// clipRect clips the rectangle (x, y, w, h) to a (0, 0, bw, bh) boundary
// and returns the half-open result as x0, y0, x1, y1.
func clipRect(x, y, w, h, bw, bh int) (int, int, int, int) {
	x0, y0 := x, y
	x1, y1 := x+w, y+h
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > bw {
		x1 = bw
	}
	if y1 > bh {
		y1 = bh
	}
	return x0, y0, x1, y1
}

// mulDiv255 multiplies two byte values and divides by 255 with proper rounding.
func mulDiv255(a, b byte) byte {
	return byte((uint16(a)*uint16(b) + 127) / 255)
}

// addDiv255 adds two byte values with clamping to 255.
func addDiv255(a, b byte) byte {
	sum := uint16(a) + uint16(b)
	if sum > 255 {
		return 255
	}
	return byte(sum)
}
