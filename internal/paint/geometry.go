// Package paint implements the element painters and the geometry/text
// utilities they share. Painters are pure routines bound to the abstract
// drawing surface; a painter failure is recoverable and only skips its
// element for the current frame.
package paint

import (
	"image"

	"github.com/framecast/backend/internal/timeline"
)

// ComputePosition resolves an element box's top-left corner from its
// anchor, the canvas size and the box size. Offsets are added after the
// anchor is resolved.
func ComputePosition(pos timeline.Position, canvasW, canvasH, elemW, elemH, offsetX, offsetY float64) (float64, float64) {
	var x, y float64

	switch pos {
	case timeline.PosTopLeft, timeline.PosCenterLeft, timeline.PosBottomLeft, timeline.PosLeft:
		x = 0
	case timeline.PosTopRight, timeline.PosCenterRight, timeline.PosBottomRight, timeline.PosRight:
		x = canvasW - elemW
	default:
		x = (canvasW - elemW) / 2
	}

	switch pos {
	case timeline.PosTopLeft, timeline.PosTopCenter, timeline.PosTopRight:
		y = 0
	case timeline.PosBottomLeft, timeline.PosBottomCenter, timeline.PosBottomRight:
		y = canvasH - elemH
	default:
		y = (canvasH - elemH) / 2
	}

	return x + offsetX, y + offsetY
}

// FitRects maps a source image onto a destination box. Cover crops the
// source centrally to the destination aspect; contain and fill stretch
// the full source onto the box.
func FitRects(fit timeline.Fit, srcW, srcH int, dstX, dstY, dstW, dstH float64) (src image.Rectangle, dst image.Rectangle) {
	dst = image.Rect(int(dstX), int(dstY), int(dstX+dstW), int(dstY+dstH))
	src = image.Rect(0, 0, srcW, srcH)

	if fit != timeline.FitCover || srcW == 0 || srcH == 0 || dstW <= 0 || dstH <= 0 {
		return src, dst
	}

	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := dstW / dstH
	if srcAspect > dstAspect {
		// Source is wider: crop the sides.
		cropW := int(float64(srcH) * dstAspect)
		x0 := (srcW - cropW) / 2
		src = image.Rect(x0, 0, x0+cropW, srcH)
	} else if srcAspect < dstAspect {
		// Source is taller: crop top and bottom.
		cropH := int(float64(srcW) / dstAspect)
		y0 := (srcH - cropH) / 2
		src = image.Rect(0, y0, srcW, y0+cropH)
	}
	return src, dst
}

// elementBox resolves an element's box size with sensible fallbacks for
// sources that carry intrinsic dimensions.
func elementBox(el *timeline.Element, intrinsicW, intrinsicH float64) (w, h float64) {
	w, h = el.Width, el.Height
	if w <= 0 {
		w = intrinsicW
	}
	if h <= 0 {
		h = intrinsicH
	}
	return w, h
}
