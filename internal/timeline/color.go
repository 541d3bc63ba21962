package timeline

import (
	"image/color"

	"github.com/mazznoer/csscolorparser"
)

// ParseColor parses a #rrggbb, #rrggbbaa or CSS-named color string.
func ParseColor(s string) (color.RGBA, error) {
	c, err := csscolorparser.Parse(s)
	if err != nil {
		return color.RGBA{}, err
	}
	r, g, b, a := c.RGBA255()
	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// ParseColorDefault parses s, falling back to def on empty or invalid input.
func ParseColorDefault(s string, def color.RGBA) color.RGBA {
	if s == "" {
		return def
	}
	c, err := ParseColor(s)
	if err != nil {
		return def
	}
	return c
}

// ValidColor reports whether s parses as a color. Empty strings are
// accepted since every color attribute has a default.
func ValidColor(s string) bool {
	if s == "" {
		return true
	}
	_, err := ParseColor(s)
	return err == nil
}
