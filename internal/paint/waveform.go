package paint

import (
	"image/color"

	"github.com/framecast/backend/internal/canvas"
	"github.com/framecast/backend/internal/timeline"
)

const defaultBarCount = 64

// Waveform samples the element's audio into amplitude windows and draws
// them as bars or a line across the element box. Bars left of the
// playback progress are highlighted.
func Waveform(l *canvas.Layer, el *timeline.Element, env *Env) error {
	bars := el.BarCount
	if bars <= 0 {
		bars = defaultBarCount
	}
	amps, err := env.Audio.Amplitudes(env.Ctx, el.AudioURL, bars)
	if err != nil {
		return err
	}

	w, h := elementBox(el, env.CanvasW, 120)
	x, y := ComputePosition(el.Position, env.CanvasW, env.CanvasH, w, h, el.OffsetX, el.OffsetY)

	base := timeline.ParseColorDefault(el.Color, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	highlight := timeline.ParseColorDefault(el.HighlightColor, base)

	progress := 0.0
	if env.Duration > 0 {
		progress = env.LocalTime / env.Duration
	}
	played := int(progress * float64(len(amps)))

	dc := l.DC()
	switch {
	case el.Style == "line" && len(amps) > 1:
		step := w / float64(len(amps)-1)
		for i, amp := range amps {
			px := x + float64(i)*step
			py := y + h - amp*h
			if i == 0 {
				dc.MoveTo(px, py)
			} else {
				dc.LineTo(px, py)
			}
		}
		dc.SetColor(base)
		dc.SetLineWidth(2)
		dc.Stroke()

		// Progress indicator.
		dc.SetColor(highlight)
		dc.DrawCircle(x+progress*w, y+h/2, 4)
		dc.Fill()

	default: // bars
		slot := w / float64(len(amps))
		barW := slot * 0.7
		for i, amp := range amps {
			barH := amp * h
			if barH < 1 {
				barH = 1
			}
			if i < played {
				dc.SetColor(highlight)
			} else {
				dc.SetColor(dimmed(base))
			}
			dc.DrawRectangle(x+float64(i)*slot+(slot-barW)/2, y+h-barH, barW, barH)
			dc.Fill()
		}
	}
	return nil
}

// dimmed returns the color at 40% alpha for the un-played portion.
func dimmed(c color.RGBA) color.RGBA {
	c.A = uint8(float64(c.A) * 0.4)
	return c
}
