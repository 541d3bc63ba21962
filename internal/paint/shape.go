package paint

import (
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/framecast/backend/internal/canvas"
	"github.com/framecast/backend/internal/timeline"
)

// Shape draws a parameterized primitive with fill and stroke. Shapes
// need no assets and never fail.
func Shape(l *canvas.Layer, el *timeline.Element, env *Env) error {
	w, h := elementBox(el, 100, 100)
	x, y := ComputePosition(el.Position, env.CanvasW, env.CanvasH, w, h, el.OffsetX, el.OffsetY)

	dc := l.DC()
	switch el.Shape {
	case "", "rect":
		dc.DrawRectangle(x, y, w, h)
	case "rounded-rect":
		r := el.Radius
		if r <= 0 {
			r = math.Min(w, h) * 0.15
		}
		dc.DrawRoundedRectangle(x, y, w, h, r)
	case "circle":
		dc.DrawCircle(x+w/2, y+h/2, math.Min(w, h)/2)
	case "ellipse":
		dc.DrawEllipse(x+w/2, y+h/2, w/2, h/2)
	case "line":
		dc.MoveTo(x, y)
		dc.LineTo(x+w, y+h)
	case "polygon":
		sides := el.Sides
		if sides < 3 {
			sides = 6
		}
		dc.DrawRegularPolygon(sides, x+w/2, y+h/2, math.Min(w, h)/2, -math.Pi/2)
	case "star":
		drawStar(dc, el.Sides, x+w/2, y+h/2, math.Min(w, h)/2)
	}

	fill := timeline.ParseColorDefault(el.Fill, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	hasStroke := el.Stroke != "" && el.StrokeWidth > 0

	if el.Shape == "line" {
		// Lines only stroke; fall back to the fill color.
		strokeColor := timeline.ParseColorDefault(el.Stroke, fill)
		width := el.StrokeWidth
		if width <= 0 {
			width = 2
		}
		dc.SetColor(strokeColor)
		dc.SetLineWidth(width)
		dc.Stroke()
		return nil
	}

	dc.SetColor(fill)
	if hasStroke {
		dc.FillPreserve()
		dc.SetColor(timeline.ParseColorDefault(el.Stroke, color.RGBA{A: 255}))
		dc.SetLineWidth(el.StrokeWidth)
		dc.Stroke()
	} else {
		dc.Fill()
	}
	return nil
}

// drawStar traces an n-point star with an inner radius at half the outer.
func drawStar(dc *gg.Context, points int, cx, cy, outer float64) {
	if points < 3 {
		points = 5
	}
	inner := outer * 0.5
	step := math.Pi / float64(points)
	for i := 0; i < points*2; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		angle := -math.Pi/2 + float64(i)*step
		x := cx + r*math.Cos(angle)
		y := cy + r*math.Sin(angle)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
}
