// Package canvas implements the 2D drawing surface the compositor renders
// onto: a CPU raster backend with a save/restore state stack, affine
// transforms, global alpha, blend modes, pixel filters, drop shadows and
// raw RGBA export. Vector and text rasterization is delegated to
// fogleman/gg; element effects are applied when a painted layer is
// composited into the frame.
package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/fogleman/gg"
)

type opKind int

const (
	opTranslate opKind = iota
	opScaleAbout
	opRotateAbout
)

type transformOp struct {
	kind       opKind
	a, b, x, y float64
}

type state struct {
	ops     []transformOp
	alpha   float64
	blend   BlendMode
	filters *Filters
	shadow  *Shadow
}

// Shadow describes a drop shadow composited beneath a layer.
type Shadow struct {
	Color   color.RGBA
	Blur    float64
	OffsetX float64
	OffsetY float64
}

// Surface is a reusable frame buffer. It is owned by a single render
// loop and must not be shared.
type Surface struct {
	w, h   int
	img    *image.RGBA
	base   *gg.Context
	states []state
}

// New creates a surface of the given pixel dimensions.
func New(w, h int) *Surface {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	s := &Surface{
		w:    w,
		h:    h,
		img:  img,
		base: gg.NewContextForRGBA(img),
	}
	s.Reset()
	return s
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int { return s.w }

// Height returns the surface height in pixels.
func (s *Surface) Height() int { return s.h }

// Reset restores the default state: identity transform, alpha 1,
// source-over compositing, no filters, no shadow. The pixel contents are
// left untouched; call Clear to repaint.
func (s *Surface) Reset() {
	s.states = s.states[:0]
	s.states = append(s.states, state{alpha: 1})
}

func (s *Surface) cur() *state {
	return &s.states[len(s.states)-1]
}

// Save pushes a copy of the current drawing state.
func (s *Surface) Save() {
	top := *s.cur()
	top.ops = append([]transformOp(nil), top.ops...)
	s.states = append(s.states, top)
}

// Restore pops the drawing state. Restoring past the bottom of the stack
// is a no-op.
func (s *Surface) Restore() {
	if len(s.states) > 1 {
		s.states = s.states[:len(s.states)-1]
	}
}

// Translate offsets subsequent drawing.
func (s *Surface) Translate(dx, dy float64) {
	st := s.cur()
	st.ops = append(st.ops, transformOp{kind: opTranslate, x: dx, y: dy})
}

// ScaleAbout scales subsequent drawing around the pivot (x, y).
func (s *Surface) ScaleAbout(factor, x, y float64) {
	st := s.cur()
	st.ops = append(st.ops, transformOp{kind: opScaleAbout, a: factor, b: factor, x: x, y: y})
}

// RotateAbout rotates subsequent drawing by angle radians around the
// pivot (x, y).
func (s *Surface) RotateAbout(angle, x, y float64) {
	st := s.cur()
	st.ops = append(st.ops, transformOp{kind: opRotateAbout, a: angle, x: x, y: y})
}

// SetAlpha sets the global alpha applied when the next layer composites.
func (s *Surface) SetAlpha(a float64) {
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}
	s.cur().alpha = a
}

// Alpha returns the current global alpha.
func (s *Surface) Alpha() float64 { return s.cur().alpha }

// SetBlendMode sets the compositing operator for the next layer.
func (s *Surface) SetBlendMode(m BlendMode) { s.cur().blend = m }

// SetFilters sets the pixel filter chain applied to the next layer.
func (s *Surface) SetFilters(f *Filters) { s.cur().filters = f }

// SetShadow sets the drop shadow composited beneath the next layer.
func (s *Surface) SetShadow(sh *Shadow) { s.cur().shadow = sh }

// Clear fills the whole surface with c, replacing any existing pixels.
func (s *Surface) Clear(c color.Color) {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// FillBackground paints an opaque solid background over the full surface.
func (s *Surface) FillBackground(c color.Color) {
	s.base.SetColor(c)
	s.base.Clear()
}

// FillGradientBackground paints a linear gradient across the full surface.
// The angle is in degrees; 0 runs left to right. Fewer than two stops
// degrade to a solid fill of the first color (or a no-op when empty).
func (s *Surface) FillGradientBackground(stops []color.RGBA, angleDeg float64) {
	switch len(stops) {
	case 0:
		return
	case 1:
		s.FillBackground(stops[0])
		return
	}
	x0, y0, x1, y1 := gradientAxis(float64(s.w), float64(s.h), angleDeg)
	grad := gg.NewLinearGradient(x0, y0, x1, y1)
	for i, c := range stops {
		grad.AddColorStop(float64(i)/float64(len(stops)-1), c)
	}
	s.base.SetFillStyle(grad)
	s.base.DrawRectangle(0, 0, float64(s.w), float64(s.h))
	s.base.Fill()
}

// Layer allocates a transparent scratch layer with the current transform
// installed on its drawing context. Painters draw in canvas coordinates;
// the active translate/scale/rotate stack is already applied.
func (s *Surface) Layer() *Layer {
	img := image.NewRGBA(image.Rect(0, 0, s.w, s.h))
	dc := gg.NewContextForRGBA(img)
	for _, op := range s.cur().ops {
		switch op.kind {
		case opTranslate:
			dc.Translate(op.x, op.y)
		case opScaleAbout:
			dc.ScaleAbout(op.a, op.b, op.x, op.y)
		case opRotateAbout:
			dc.RotateAbout(op.a, op.x, op.y)
		}
	}
	return &Layer{img: img, dc: dc}
}

// Composite merges a painted layer into the frame, applying in order the
// current filter chain, drop shadow, blend mode and global alpha. Each
// factor is applied exactly once.
func (s *Surface) Composite(l *Layer) {
	st := s.cur()

	src := l.img
	if st.filters != nil && !st.filters.IsIdentity() {
		applyFilters(src, st.filters)
	}

	if sh := st.shadow; sh != nil {
		silhouette := shadowSilhouette(src, sh)
		blendOver(s.img, silhouette, st.alpha, BlendNormal, int(sh.OffsetX), int(sh.OffsetY))
	}

	blendOver(s.img, src, st.alpha, st.blend, 0, 0)
}

// Image exposes the underlying frame for tests and pixel inspection.
func (s *Surface) Image() *image.RGBA { return s.img }

// RGBA exports the frame as width*height*4 bytes, row-major, top-down,
// 8-bit non-premultiplied RGBA.
func (s *Surface) RGBA() []byte {
	out := make([]byte, s.w*s.h*4)
	pix := s.img.Pix
	for i := 0; i < len(pix); i += 4 {
		a := uint32(pix[i+3])
		if a == 0 {
			continue
		}
		if a == 255 {
			copy(out[i:i+4], pix[i:i+4])
			continue
		}
		out[i+0] = byte((uint32(pix[i+0])*255 + a/2) / a)
		out[i+1] = byte((uint32(pix[i+1])*255 + a/2) / a)
		out[i+2] = byte((uint32(pix[i+2])*255 + a/2) / a)
		out[i+3] = byte(a)
	}
	return out
}

// Layer is a transparent scratch buffer one element paints into before it
// is composited back with the element's effects.
type Layer struct {
	img *image.RGBA
	dc  *gg.Context
}

// DC returns the layer's drawing context.
func (l *Layer) DC() *gg.Context { return l.dc }

// Image returns the layer's backing pixels.
func (l *Layer) Image() *image.RGBA { return l.img }

func gradientAxis(w, h, angleDeg float64) (x0, y0, x1, y1 float64) {
	// Rotate the default left-to-right axis about the canvas center.
	rad := angleDeg * math.Pi / 180
	cx, cy := w/2, h/2
	dx, dy := math.Cos(rad)*w/2, math.Sin(rad)*h/2
	return cx - dx, cy - dy, cx + dx, cy + dy
}
