package canvas

import (
	"image"
	"math"
)

// Filters is a pixel filter chain applied to a layer before compositing.
// Values mirror the CSS filter functions; NewFilters returns the identity
// chain. Application order is fixed: blur, brightness, contrast,
// grayscale, hue-rotate, invert, saturate, sepia.
type Filters struct {
	Blur       float64 // px, 0 = none
	Brightness float64 // 1 = unchanged
	Contrast   float64 // 1 = unchanged
	Grayscale  float64 // 0..1
	HueRotate  float64 // degrees
	Invert     float64 // 0..1
	Saturate   float64 // 1 = unchanged
	Sepia      float64 // 0..1
}

// NewFilters returns the identity filter chain.
func NewFilters() *Filters {
	return &Filters{Brightness: 1, Contrast: 1, Saturate: 1}
}

// IsIdentity reports whether the chain changes nothing.
func (f *Filters) IsIdentity() bool {
	return f.Blur == 0 && f.Brightness == 1 && f.Contrast == 1 &&
		f.Grayscale == 0 && f.HueRotate == 0 && f.Invert == 0 &&
		f.Saturate == 1 && f.Sepia == 0
}

// applyFilters runs the chain in place on a premultiplied RGBA layer.
func applyFilters(img *image.RGBA, f *Filters) {
	if f.Blur > 0 {
		boxBlur(img, int(f.Blur+0.5))
	}

	needColor := f.Brightness != 1 || f.Contrast != 1 || f.Grayscale != 0 ||
		f.HueRotate != 0 || f.Invert != 0 || f.Saturate != 1 || f.Sepia != 0
	if !needColor {
		return
	}

	hueSin, hueCos := math.Sincos(f.HueRotate * math.Pi / 180)

	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		a := float64(pix[i+3]) / 255
		if a == 0 {
			continue
		}
		r := float64(pix[i+0]) / 255 / a
		g := float64(pix[i+1]) / 255 / a
		b := float64(pix[i+2]) / 255 / a

		if f.Brightness != 1 {
			r *= f.Brightness
			g *= f.Brightness
			b *= f.Brightness
		}
		if f.Contrast != 1 {
			r = (r-0.5)*f.Contrast + 0.5
			g = (g-0.5)*f.Contrast + 0.5
			b = (b-0.5)*f.Contrast + 0.5
		}
		if f.Grayscale != 0 {
			l := lum(r, g, b)
			r = r + (l-r)*f.Grayscale
			g = g + (l-g)*f.Grayscale
			b = b + (l-b)*f.Grayscale
		}
		if f.HueRotate != 0 {
			r, g, b = hueRotate(r, g, b, hueCos, hueSin)
		}
		if f.Invert != 0 {
			r = r + (1-2*r)*f.Invert
			g = g + (1-2*g)*f.Invert
			b = b + (1-2*b)*f.Invert
		}
		if f.Saturate != 1 {
			l := lum(r, g, b)
			r = l + (r-l)*f.Saturate
			g = l + (g-l)*f.Saturate
			b = l + (b-l)*f.Saturate
		}
		if f.Sepia != 0 {
			sr := 0.393*r + 0.769*g + 0.189*b
			sg := 0.349*r + 0.686*g + 0.168*b
			sb := 0.272*r + 0.534*g + 0.131*b
			r = r + (sr-r)*f.Sepia
			g = g + (sg-g)*f.Sepia
			b = b + (sb-b)*f.Sepia
		}

		pix[i+0] = clampByte(clampUnit(r) * a * 255)
		pix[i+1] = clampByte(clampUnit(g) * a * 255)
		pix[i+2] = clampByte(clampUnit(b) * a * 255)
	}
}

// hueRotate applies the SVG feColorMatrix hue rotation.
func hueRotate(r, g, b, cosA, sinA float64) (float64, float64, float64) {
	nr := (0.213+cosA*0.787-sinA*0.213)*r + (0.715-cosA*0.715-sinA*0.715)*g + (0.072-cosA*0.072+sinA*0.928)*b
	ng := (0.213-cosA*0.213+sinA*0.143)*r + (0.715+cosA*0.285+sinA*0.140)*g + (0.072-cosA*0.072-sinA*0.283)*b
	nb := (0.213-cosA*0.213-sinA*0.787)*r + (0.715-cosA*0.715+sinA*0.715)*g + (0.072+cosA*0.928+sinA*0.072)*b
	return nr, ng, nb
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// boxBlur approximates a gaussian blur with three separable box passes
// over the premultiplied channels.
func boxBlur(img *image.RGBA, radius int) {
	if radius <= 0 {
		return
	}
	for pass := 0; pass < 3; pass++ {
		blurAxis(img, radius, true)
		blurAxis(img, radius, false)
	}
}

func blurAxis(img *image.RGBA, radius int, horizontal bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	outer, inner := h, w
	if !horizontal {
		outer, inner = w, h
	}
	line := make([][4]float64, inner)
	window := float64(2*radius + 1)

	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			x, y := i, o
			if !horizontal {
				x, y = o, i
			}
			p := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			line[i] = [4]float64{
				float64(img.Pix[p+0]), float64(img.Pix[p+1]),
				float64(img.Pix[p+2]), float64(img.Pix[p+3]),
			}
		}
		for i := 0; i < inner; i++ {
			var sum [4]float64
			for k := i - radius; k <= i+radius; k++ {
				idx := k
				if idx < 0 {
					idx = 0
				} else if idx >= inner {
					idx = inner - 1
				}
				for c := 0; c < 4; c++ {
					sum[c] += line[idx][c]
				}
			}
			x, y := i, o
			if !horizontal {
				x, y = o, i
			}
			p := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			for c := 0; c < 4; c++ {
				img.Pix[p+c] = clampByte(sum[c] / window)
			}
		}
	}
}

// shadowSilhouette builds the blurred, tinted alpha silhouette of a layer
// used as its drop shadow.
func shadowSilhouette(src *image.RGBA, sh *Shadow) *image.RGBA {
	out := image.NewRGBA(src.Bounds())
	shA := float64(sh.Color.A) / 255
	shR := float64(sh.Color.R) / 255
	shG := float64(sh.Color.G) / 255
	shB := float64(sh.Color.B) / 255
	for i := 0; i < len(src.Pix); i += 4 {
		a := float64(src.Pix[i+3]) / 255 * shA
		out.Pix[i+0] = clampByte(shR * a * 255)
		out.Pix[i+1] = clampByte(shG * a * 255)
		out.Pix[i+2] = clampByte(shB * a * 255)
		out.Pix[i+3] = clampByte(a * 255)
	}
	if sh.Blur > 0 {
		boxBlur(out, int(sh.Blur/2+0.5))
	}
	return out
}
