package velaterm

import (
	"image/color"
	"testing"
)

func TestRGB(t *testing.T) {
	c := RGB(0.2, 0.4, 0.6)
	if c.A != 1 {
		t.Errorf("RGB alpha = %v, want 1", c.A)
	}
	if c.R != 0.2 || c.G != 0.4 || c.B != 0.6 {
		t.Errorf("RGB = %+v", c)
	}
}

func TestRGBAInterface(t *testing.T) {
	r, g, b, a := White.RGBA()
	if r != 65535 || g != 65535 || b != 65535 || a != 65535 {
		t.Errorf("White.RGBA() = (%d, %d, %d, %d)", r, g, b, a)
	}

	// Out-of-range components clamp instead of wrapping.
	r, _, _, _ = RGBA{R: 2, A: -1}.RGBA()
	if r != 65535 {
		t.Errorf("clamped R = %d, want 65535", r)
	}
}

func TestFromColor(t *testing.T) {
	got := FromColor(color.RGBA{R: 255, G: 128, B: 0, A: 255})
	if got.R != 1 || got.A != 1 {
		t.Errorf("FromColor = %+v", got)
	}
	if got.G < 0.49 || got.G > 0.51 {
		t.Errorf("G = %v, want ~0.5", got.G)
	}
}

func TestWithAlpha(t *testing.T) {
	c := White.WithAlpha(0.3)
	if c.A != 0.3 || c.R != 1 {
		t.Errorf("WithAlpha = %+v", c)
	}
	// The receiver is unchanged.
	if White.A != 1 {
		t.Error("WithAlpha mutated the receiver")
	}
}

func TestPremulBytes(t *testing.T) {
	tests := []struct {
		name       string
		c          RGBA
		r, g, b, a byte
	}{
		{"opaque white", White, 255, 255, 255, 255},
		{"transparent", Transparent, 0, 0, 0, 0},
		{"half red", RGBA{R: 1, A: 0.5}, 128, 0, 0, 128},
		{"clamped", RGBA{R: 3, G: -1, A: 2}, 255, 0, 0, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, a := tt.c.premulBytes()
			if r != tt.r || g != tt.g || b != tt.b || a != tt.a {
				t.Errorf("premulBytes() = (%d, %d, %d, %d), want (%d, %d, %d, %d)",
					r, g, b, a, tt.r, tt.g, tt.b, tt.a)
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	if clamp01(-0.5) != 0 || clamp01(1.5) != 1 || clamp01(0.25) != 0.25 {
		t.Error("clamp01 misbehaves")
	}
}
