package paint

import (
	"image/color"
	"strings"

	"github.com/framecast/backend/internal/canvas"
	"github.com/framecast/backend/internal/timeline"
	"golang.org/x/image/font"
)

// timedWord pairs a word with its highlight window relative to the
// element start.
type timedWord struct {
	text  string
	start float64
	end   float64
}

// captionWords resolves word timings: explicit windows win, otherwise
// the words are spread evenly across the element's lifetime.
func captionWords(el *timeline.Element, duration float64) []timedWord {
	if len(el.Words) > 0 {
		out := make([]timedWord, len(el.Words))
		for i, w := range el.Words {
			out[i] = timedWord{text: w.Text, start: w.Start, end: w.End}
		}
		return out
	}
	fields := strings.Fields(el.Text)
	if len(fields) == 0 {
		return nil
	}
	step := duration / float64(len(fields))
	out := make([]timedWord, len(fields))
	for i, w := range fields {
		out[i] = timedWord{text: w, start: float64(i) * step, end: float64(i+1) * step}
	}
	return out
}

// Caption draws word-timed text: the same layout as the text painter but
// with a per-word color that follows the element's local clock.
func Caption(l *canvas.Layer, el *timeline.Element, env *Env) error {
	words := captionWords(el, env.Duration)
	if len(words) == 0 {
		return nil
	}
	fontSize, lineHeight := textDefaults(el)
	face := env.Fonts.Face(el.FontFamily, el.FontWeight, fontSize)

	wrapWidth := el.Width
	if wrapWidth <= 0 {
		wrapWidth = env.CanvasW
	}
	lines := wrapWords(face, words, wrapWidth)

	blockW, blockH := 0.0, float64(len(lines))*fontSize*lineHeight
	for _, line := range lines {
		if w := lineWidth(face, line); w > blockW {
			blockW = w
		}
	}
	x, y := ComputePosition(el.Position, env.CanvasW, env.CanvasH, blockW, blockH, el.OffsetX, el.OffsetY)

	baseColor := timeline.ParseColorDefault(el.Color, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	highlight := timeline.ParseColorDefault(el.HighlightColor, color.RGBA{R: 255, G: 221, B: 0, A: 255})

	dc := l.DC()
	dc.SetFontFace(face)

	spaceW := MeasureString(face, " ")
	lineStep := fontSize * lineHeight
	for i, line := range lines {
		lw := lineWidth(face, line)
		lx := x
		switch el.TextAlign {
		case "", "center":
			lx = x + (blockW-lw)/2
		case "right":
			lx = x + blockW - lw
		}
		baseline := y + float64(i)*lineStep + fontSize
		for _, word := range line {
			if env.LocalTime >= word.start && env.LocalTime < word.end {
				dc.SetColor(highlight)
			} else {
				dc.SetColor(baseColor)
			}
			dc.DrawString(word.text, lx, baseline)
			lx += MeasureString(face, word.text) + spaceW
		}
	}
	return nil
}

// wrapWords breaks timed words into lines no wider than maxWidth.
func wrapWords(face font.Face, words []timedWord, maxWidth float64) [][]timedWord {
	var lines [][]timedWord
	var current []timedWord
	width := 0.0
	spaceW := MeasureString(face, " ")
	for _, w := range words {
		ww := MeasureString(face, w.text)
		candidate := width + ww
		if len(current) > 0 {
			candidate += spaceW
		}
		if maxWidth > 0 && len(current) > 0 && candidate > maxWidth {
			lines = append(lines, current)
			current = []timedWord{w}
			width = ww
			continue
		}
		current = append(current, w)
		width = candidate
	}
	if len(current) > 0 {
		lines = append(lines, current)
	}
	return lines
}

func lineWidth(face font.Face, line []timedWord) float64 {
	w := 0.0
	spaceW := MeasureString(face, " ")
	for i, word := range line {
		if i > 0 {
			w += spaceW
		}
		w += MeasureString(face, word.text)
	}
	return w
}
