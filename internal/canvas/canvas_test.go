package canvas

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRGBAExport(t *testing.T) {
	s := New(4, 3)
	s.Clear(color.RGBA{R: 10, G: 20, B: 30, A: 255})

	out := s.RGBA()
	require.Len(t, out, 4*3*4)
	assert.Equal(t, byte(10), out[0])
	assert.Equal(t, byte(20), out[1])
	assert.Equal(t, byte(30), out[2])
	assert.Equal(t, byte(255), out[3])
	// Last pixel of the last row matches too.
	assert.Equal(t, byte(30), out[len(out)-2])
}

func TestLayerCompositeAlpha(t *testing.T) {
	s := New(10, 10)
	s.Clear(color.RGBA{A: 255}) // opaque black

	l := s.Layer()
	l.DC().SetRGBA(1, 1, 1, 1)
	l.DC().Clear()

	s.SetAlpha(0.5)
	s.Composite(l)

	c := s.Image().RGBAAt(5, 5)
	assert.InDelta(t, 127.5, float64(c.R), 1.0)
	assert.Equal(t, uint8(255), c.A)
}

func TestCompositeSkipsZeroAlpha(t *testing.T) {
	s := New(4, 4)
	s.Clear(color.RGBA{A: 255})

	l := s.Layer()
	l.DC().SetRGBA(1, 0, 0, 1)
	l.DC().Clear()

	s.SetAlpha(0)
	s.Composite(l)
	assert.Equal(t, uint8(0), s.Image().RGBAAt(2, 2).R)
}

func TestBlendMultiply(t *testing.T) {
	s := New(4, 4)
	s.Clear(color.RGBA{R: 128, G: 128, B: 128, A: 255})

	l := s.Layer()
	l.DC().SetRGBA(0.5, 1, 0, 1)
	l.DC().Clear()

	s.SetBlendMode(BlendMultiply)
	s.Composite(l)

	c := s.Image().RGBAAt(1, 1)
	// 0.5 * 0.5 = 0.25, 0.5 * 1 = 0.5, 0.5 * 0 = 0.
	assert.InDelta(t, 64, float64(c.R), 2)
	assert.InDelta(t, 128, float64(c.G), 2)
	assert.InDelta(t, 0, float64(c.B), 2)
}

func TestBlendScreenLightens(t *testing.T) {
	s := New(4, 4)
	s.Clear(color.RGBA{R: 128, G: 128, B: 128, A: 255})

	l := s.Layer()
	l.DC().SetRGBA(0.5, 0.5, 0.5, 1)
	l.DC().Clear()

	s.SetBlendMode(BlendScreen)
	s.Composite(l)
	assert.Greater(t, s.Image().RGBAAt(1, 1).R, uint8(128))
}

func TestSaveRestore(t *testing.T) {
	s := New(8, 8)
	s.SetAlpha(0.25)
	s.Save()
	s.SetAlpha(0.75)
	s.SetBlendMode(BlendMultiply)
	assert.Equal(t, 0.75, s.Alpha())
	s.Restore()
	assert.Equal(t, 0.25, s.Alpha())

	// Restoring past the bottom is a no-op.
	s.Restore()
	s.Restore()
	assert.Equal(t, 0.25, s.Alpha())
}

func TestTransformTranslate(t *testing.T) {
	s := New(20, 20)
	s.Clear(color.RGBA{A: 255})

	s.Save()
	s.Translate(10, 0)
	l := s.Layer()
	l.DC().SetRGBA(1, 1, 1, 1)
	l.DC().DrawRectangle(0, 0, 5, 5)
	l.DC().Fill()
	s.Composite(l)
	s.Restore()

	assert.Equal(t, uint8(255), s.Image().RGBAAt(12, 2).R)
	assert.Equal(t, uint8(0), s.Image().RGBAAt(2, 2).R)
}

func TestFiltersIdentity(t *testing.T) {
	f := NewFilters()
	assert.True(t, f.IsIdentity())
	f.Brightness = 2
	assert.False(t, f.IsIdentity())
}

func TestFilterInvert(t *testing.T) {
	s := New(4, 4)
	s.Clear(color.RGBA{A: 255})

	l := s.Layer()
	l.DC().SetRGBA(1, 1, 1, 1)
	l.DC().Clear()

	f := NewFilters()
	f.Invert = 1
	s.SetFilters(f)
	s.Composite(l)

	assert.Equal(t, uint8(0), s.Image().RGBAAt(2, 2).R)
}

func TestShadowPaintsUnderLayer(t *testing.T) {
	s := New(40, 40)
	s.Clear(color.RGBA{A: 255})

	l := s.Layer()
	l.DC().SetRGBA(1, 1, 1, 1)
	l.DC().DrawRectangle(10, 10, 10, 10)
	l.DC().Fill()

	s.SetShadow(&Shadow{Color: color.RGBA{R: 255, A: 255}, OffsetX: 15, OffsetY: 0})
	s.Composite(l)

	// Shadow landed to the right of the rect where the layer is empty.
	assert.Equal(t, uint8(255), s.Image().RGBAAt(32, 15).R)
	assert.Equal(t, uint8(0), s.Image().RGBAAt(32, 15).G)
	// The rect itself is white, not tinted.
	assert.Equal(t, uint8(255), s.Image().RGBAAt(15, 15).G)
}

func TestParseBlendMode(t *testing.T) {
	assert.Equal(t, BlendNormal, ParseBlendMode(""))
	assert.Equal(t, BlendNormal, ParseBlendMode("normal"))
	assert.Equal(t, BlendMultiply, ParseBlendMode("multiply"))
	assert.Equal(t, BlendLuminosity, ParseBlendMode("luminosity"))
	assert.Equal(t, BlendNormal, ParseBlendMode("bogus"))
}

func TestGradientBackground(t *testing.T) {
	s := New(32, 8)
	s.FillGradientBackground([]color.RGBA{
		{R: 0, G: 0, B: 0, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	}, 0)

	left := s.Image().RGBAAt(1, 4)
	right := s.Image().RGBAAt(30, 4)
	assert.Less(t, left.R, uint8(64))
	assert.Greater(t, right.R, uint8(192))
}
