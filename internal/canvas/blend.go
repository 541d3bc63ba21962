package canvas

import (
	"image"
	"math"
)

// BlendMode selects the compositing operator for layer merges. The zero
// value is plain source-over.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendDarken
	BlendLighten
	BlendColorDodge
	BlendColorBurn
	BlendHardLight
	BlendSoftLight
	BlendDifference
	BlendExclusion
	BlendHue
	BlendSaturation
	BlendColor
	BlendLuminosity
)

var blendNames = map[string]BlendMode{
	"normal":      BlendNormal,
	"multiply":    BlendMultiply,
	"screen":      BlendScreen,
	"overlay":     BlendOverlay,
	"darken":      BlendDarken,
	"lighten":     BlendLighten,
	"color-dodge": BlendColorDodge,
	"color-burn":  BlendColorBurn,
	"hard-light":  BlendHardLight,
	"soft-light":  BlendSoftLight,
	"difference":  BlendDifference,
	"exclusion":   BlendExclusion,
	"hue":         BlendHue,
	"saturation":  BlendSaturation,
	"color":       BlendColor,
	"luminosity":  BlendLuminosity,
}

// ParseBlendMode maps a timeline blend mode name to its operator. Empty,
// "normal" and unknown names resolve to source-over.
func ParseBlendMode(name string) BlendMode {
	if m, ok := blendNames[name]; ok {
		return m
	}
	return BlendNormal
}

// separable per-channel blend functions, W3C compositing formulas.
func blendChannel(mode BlendMode, cb, cs float64) float64 {
	switch mode {
	case BlendMultiply:
		return cb * cs
	case BlendScreen:
		return cb + cs - cb*cs
	case BlendOverlay:
		return blendChannel(BlendHardLight, cs, cb)
	case BlendDarken:
		return math.Min(cb, cs)
	case BlendLighten:
		return math.Max(cb, cs)
	case BlendColorDodge:
		if cb == 0 {
			return 0
		}
		if cs == 1 {
			return 1
		}
		return math.Min(1, cb/(1-cs))
	case BlendColorBurn:
		if cb == 1 {
			return 1
		}
		if cs == 0 {
			return 0
		}
		return 1 - math.Min(1, (1-cb)/cs)
	case BlendHardLight:
		if cs <= 0.5 {
			return blendChannel(BlendMultiply, cb, 2*cs)
		}
		return blendChannel(BlendScreen, cb, 2*cs-1)
	case BlendSoftLight:
		if cs <= 0.5 {
			return cb - (1-2*cs)*cb*(1-cb)
		}
		var d float64
		if cb <= 0.25 {
			d = ((16*cb-12)*cb + 4) * cb
		} else {
			d = math.Sqrt(cb)
		}
		return cb + (2*cs-1)*(d-cb)
	case BlendDifference:
		return math.Abs(cb - cs)
	case BlendExclusion:
		return cb + cs - 2*cb*cs
	default:
		return cs
	}
}

func isNonSeparable(mode BlendMode) bool {
	switch mode {
	case BlendHue, BlendSaturation, BlendColor, BlendLuminosity:
		return true
	}
	return false
}

// Non-separable blend helpers, W3C set-lum/set-sat.

func lum(r, g, b float64) float64 {
	return 0.3*r + 0.59*g + 0.11*b
}

func clipColor(r, g, b float64) (float64, float64, float64) {
	l := lum(r, g, b)
	n := math.Min(r, math.Min(g, b))
	x := math.Max(r, math.Max(g, b))
	if n < 0 {
		r = l + (r-l)*l/(l-n)
		g = l + (g-l)*l/(l-n)
		b = l + (b-l)*l/(l-n)
	}
	if x > 1 {
		r = l + (r-l)*(1-l)/(x-l)
		g = l + (g-l)*(1-l)/(x-l)
		b = l + (b-l)*(1-l)/(x-l)
	}
	return r, g, b
}

func setLum(r, g, b, l float64) (float64, float64, float64) {
	d := l - lum(r, g, b)
	return clipColor(r+d, g+d, b+d)
}

func sat(r, g, b float64) float64 {
	return math.Max(r, math.Max(g, b)) - math.Min(r, math.Min(g, b))
}

func setSat(r, g, b, s float64) (float64, float64, float64) {
	cmax := math.Max(r, math.Max(g, b))
	cmin := math.Min(r, math.Min(g, b))
	cmid := r + g + b - cmax - cmin
	var nmax, nmid float64
	if cmax > cmin {
		nmid = (cmid - cmin) / (cmax - cmin) * s
		nmax = s
	}
	assign := func(v float64) float64 {
		switch v {
		case cmax:
			return nmax
		case cmin:
			return 0
		default:
			return nmid
		}
	}
	return assign(r), assign(g), assign(b)
}

func blendNonSeparable(mode BlendMode, br, bg, bb, sr, sg, sb float64) (float64, float64, float64) {
	switch mode {
	case BlendHue:
		r, g, b := setSat(sr, sg, sb, sat(br, bg, bb))
		return setLum(r, g, b, lum(br, bg, bb))
	case BlendSaturation:
		r, g, b := setSat(br, bg, bb, sat(sr, sg, sb))
		return setLum(r, g, b, lum(br, bg, bb))
	case BlendColor:
		return setLum(sr, sg, sb, lum(br, bg, bb))
	case BlendLuminosity:
		return setLum(br, bg, bb, lum(sr, sg, sb))
	}
	return sr, sg, sb
}

// blendOver composites src over dst at offset (dx, dy) with the given
// global alpha and blend mode. Both images are premultiplied RGBA; the
// blend math runs in non-premultiplied float space per pixel.
func blendOver(dst, src *image.RGBA, alpha float64, mode BlendMode, dx, dy int) {
	if alpha <= 0 {
		return
	}
	bounds := dst.Bounds()
	sb := src.Bounds()
	for y := sb.Min.Y; y < sb.Max.Y; y++ {
		ty := y + dy
		if ty < bounds.Min.Y || ty >= bounds.Max.Y {
			continue
		}
		for x := sb.Min.X; x < sb.Max.X; x++ {
			tx := x + dx
			if tx < bounds.Min.X || tx >= bounds.Max.X {
				continue
			}
			si := src.PixOffset(x, y)
			sa := float64(src.Pix[si+3]) / 255
			if sa == 0 {
				continue
			}
			// Unpremultiply the source, then apply global alpha.
			sr := float64(src.Pix[si+0]) / 255 / sa
			sg := float64(src.Pix[si+1]) / 255 / sa
			sbl := float64(src.Pix[si+2]) / 255 / sa
			as := sa * alpha

			di := dst.PixOffset(tx, ty)
			ab := float64(dst.Pix[di+3]) / 255
			var br, bg, bb float64
			if ab > 0 {
				br = float64(dst.Pix[di+0]) / 255 / ab
				bg = float64(dst.Pix[di+1]) / 255 / ab
				bb = float64(dst.Pix[di+2]) / 255 / ab
			}

			// Mix the blended color with the raw source by backdrop
			// coverage, then composite source-over.
			var mr, mg, mb float64
			if isNonSeparable(mode) {
				mr, mg, mb = blendNonSeparable(mode, br, bg, bb, sr, sg, sbl)
			} else {
				mr = blendChannel(mode, br, sr)
				mg = blendChannel(mode, bg, sg)
				mb = blendChannel(mode, bb, sbl)
			}
			cr := (1-ab)*sr + ab*mr
			cg := (1-ab)*sg + ab*mg
			cb2 := (1-ab)*sbl + ab*mb

			outR := as*cr + float64(dst.Pix[di+0])/255*(1-as)
			outG := as*cg + float64(dst.Pix[di+1])/255*(1-as)
			outB := as*cb2 + float64(dst.Pix[di+2])/255*(1-as)
			outA := as + ab*(1-as)

			dst.Pix[di+0] = clampByte(outR * 255)
			dst.Pix[di+1] = clampByte(outG * 255)
			dst.Pix[di+2] = clampByte(outB * 255)
			dst.Pix[di+3] = clampByte(outA * 255)
		}
	}
}

func clampByte(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v + 0.5)
}
