package timeline

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		data := []byte(`{
			"width": 1280, "height": 720,
			"tracks": [{
				"type": "video", "start": 0, "zIndex": 0,
				"scenes": [{
					"duration": 2, "bgColor": "#112233",
					"elements": [
						{"type": "text", "text": "Hi", "fontSize": 48},
						{"type": "shape", "shape": "circle", "width": 100, "height": 100, "fill": "red"}
					]
				}]
			}]
		}`)
		cfg, err := ParseConfig(data)
		require.NoError(t, err)
		assert.Equal(t, 1280, cfg.Width)
		assert.Len(t, cfg.Tracks[0].Scenes[0].Elements, 2)
	})

	t.Run("empty track list is valid", func(t *testing.T) {
		cfg, err := ParseConfig([]byte(`{"width": 640, "height": 480, "tracks": []}`))
		require.NoError(t, err)
		assert.Empty(t, cfg.Tracks)
	})

	tests := []struct {
		name string
		json string
	}{
		{"zero width", `{"width": 0, "height": 480, "tracks": []}`},
		{"negative track start", `{"width": 10, "height": 10, "tracks": [{"type": "video", "start": -1, "scenes": []}]}`},
		{"unknown track type", `{"width": 10, "height": 10, "tracks": [{"type": "subtitle", "scenes": []}]}`},
		{"zero scene duration", `{"width": 10, "height": 10, "tracks": [{"type": "video", "scenes": [{"duration": 0}]}]}`},
		{"unknown element type", `{"width": 10, "height": 10, "tracks": [{"type": "video", "scenes": [{"duration": 1, "elements": [{"type": "hologram"}]}]}]}`},
		{"opacity out of range", `{"width": 10, "height": 10, "tracks": [{"type": "video", "scenes": [{"duration": 1, "elements": [{"type": "text", "opacity": 1.5}]}]}]}`},
		{"unknown position", `{"width": 10, "height": 10, "tracks": [{"type": "video", "scenes": [{"duration": 1, "elements": [{"type": "text", "position": "middle"}]}]}]}`},
		{"unknown blend mode", `{"width": 10, "height": 10, "tracks": [{"type": "video", "scenes": [{"duration": 1, "elements": [{"type": "image", "blendMode": "plasma"}]}]}]}`},
		{"unknown transition", `{"width": 10, "height": 10, "tracks": [{"type": "video", "scenes": [{"duration": 1, "transition": {"type": "swirl", "duration": 1}}]}]}`},
		{"negative keyframe time", `{"width": 10, "height": 10, "tracks": [{"type": "video", "scenes": [{"duration": 1, "elements": [{"type": "text", "keyframes": [{"time": -1}]}]}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.json))
			require.Error(t, err)
			var ce *ConfigError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestElementVisibility(t *testing.T) {
	dur := 3.0
	el := Element{Type: ElementText, Start: 2, Duration: &dur}

	// Inclusive at both ends of [2, 5].
	assert.True(t, el.VisibleAt(2, 10))
	assert.True(t, el.VisibleAt(3.5, 10))
	assert.True(t, el.VisibleAt(5, 10))
	assert.False(t, el.VisibleAt(1.99, 10))
	assert.False(t, el.VisibleAt(5.01, 10))
}

func TestElementDefaults(t *testing.T) {
	el := Element{Type: ElementVideo, Start: 1}
	assert.Equal(t, 1.0, el.BaseOpacity())
	assert.Equal(t, 1.0, el.BaseScale())
	assert.Equal(t, 1.0, el.PlaybackSpeed())
	// Default duration runs to the scene end.
	assert.Equal(t, 4.0, el.EffectiveDuration(5))
}

func TestTrackEnd(t *testing.T) {
	track := Track{Start: 1.5, Scenes: []Scene{{Duration: 2}, {Duration: 3}}}
	assert.Equal(t, 6.5, track.End())
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 128, B: 0, A: 255}, c)

	c, err = ParseColor("#00000080")
	require.NoError(t, err)
	assert.Equal(t, uint8(128), c.A)

	c, err = ParseColor("rebeccapurple")
	require.NoError(t, err)
	assert.Equal(t, uint8(102), c.R)

	_, err = ParseColor("not-a-color")
	assert.Error(t, err)

	def := color.RGBA{R: 1, G: 2, B: 3, A: 255}
	assert.Equal(t, def, ParseColorDefault("", def))
	assert.Equal(t, def, ParseColorDefault("bogus", def))
}
