package paint

import (
	"image/color"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/framecast/backend/internal/canvas"
	"github.com/framecast/backend/internal/timeline"
	"golang.org/x/image/font"
)

const (
	defaultFontSize   = 32.0
	defaultLineHeight = 1.2
)

// measurer is the process-wide 1x1 measurement surface. It is lazily
// created on first use and torn down by CleanupMeasurer; treating it as
// immortal within a single job is safe.
var measurer struct {
	mu sync.Mutex
	dc *gg.Context
}

func withMeasurer(face font.Face, fn func(dc *gg.Context)) {
	measurer.mu.Lock()
	defer measurer.mu.Unlock()
	if measurer.dc == nil {
		measurer.dc = gg.NewContext(1, 1)
	}
	measurer.dc.SetFontFace(face)
	fn(measurer.dc)
}

// CleanupMeasurer releases the shared measurement surface.
func CleanupMeasurer() {
	measurer.mu.Lock()
	defer measurer.mu.Unlock()
	measurer.dc = nil
}

// MeasureString returns the rendered width of s under face.
func MeasureString(face font.Face, s string) float64 {
	var w float64
	withMeasurer(face, func(dc *gg.Context) {
		w, _ = dc.MeasureString(s)
	})
	return w
}

// WrapText breaks text into lines no wider than maxWidth, honoring
// explicit newlines and breaking on word boundaries. A non-positive
// maxWidth disables wrapping.
func WrapText(face font.Face, text string, maxWidth float64) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		if maxWidth <= 0 || paragraph == "" {
			lines = append(lines, paragraph)
			continue
		}
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			candidate := current + " " + word
			if MeasureString(face, candidate) <= maxWidth {
				current = candidate
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		lines = append(lines, current)
	}
	return lines
}

// MeasureTextBlock returns the bounding size of wrapped lines.
func MeasureTextBlock(face font.Face, lines []string, fontSize, lineHeight float64) (w, h float64) {
	for _, line := range lines {
		if lw := MeasureString(face, line); lw > w {
			w = lw
		}
	}
	return w, float64(len(lines)) * fontSize * lineHeight
}

func textDefaults(el *timeline.Element) (size, lineHeight float64) {
	size = el.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	lineHeight = el.LineHeight
	if lineHeight <= 0 {
		lineHeight = defaultLineHeight
	}
	return size, lineHeight
}

// Text lays out wrapped lines and draws them baseline by baseline. When
// the element carries the typewriter preset, the preset state's scale is
// the reveal progress and the text is truncated accordingly.
func Text(l *canvas.Layer, el *timeline.Element, env *Env) error {
	if el.Text == "" {
		return nil
	}
	fontSize, lineHeight := textDefaults(el)
	face := env.Fonts.Face(el.FontFamily, el.FontWeight, fontSize)

	wrapWidth := el.Width
	if wrapWidth <= 0 {
		wrapWidth = env.CanvasW
	}
	lines := WrapText(face, el.Text, wrapWidth)

	if el.Animation != nil && el.Animation.Type == "typewriter" {
		lines = truncateLines(lines, typewriterCount(lines, env.Anim.Scale))
	}

	blockW, blockH := MeasureTextBlock(face, lines, fontSize, lineHeight)
	x, y := ComputePosition(el.Position, env.CanvasW, env.CanvasH, blockW, blockH, el.OffsetX, el.OffsetY)

	dc := l.DC()
	dc.SetFontFace(face)
	dc.SetColor(timeline.ParseColorDefault(el.Color, color.RGBA{R: 255, G: 255, B: 255, A: 255}))

	lineStep := fontSize * lineHeight
	for i, line := range lines {
		if line == "" {
			continue
		}
		lw := MeasureString(face, line)
		lx := x
		switch el.TextAlign {
		case "center":
			lx = x + (blockW-lw)/2
		case "right":
			lx = x + blockW - lw
		}
		baseline := y + float64(i)*lineStep + fontSize
		dc.DrawString(line, lx, baseline)
	}
	return nil
}

// typewriterCount maps reveal progress to the number of visible runes.
func typewriterCount(lines []string, progress float64) int {
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	total := 0
	for _, line := range lines {
		total += len([]rune(line))
	}
	return int(progress * float64(total))
}

// truncateLines keeps the first count runes across lines.
func truncateLines(lines []string, count int) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		runes := []rune(line)
		if count <= 0 {
			break
		}
		if len(runes) <= count {
			out = append(out, line)
			count -= len(runes)
			continue
		}
		out = append(out, string(runes[:count]))
		count = 0
	}
	return out
}
