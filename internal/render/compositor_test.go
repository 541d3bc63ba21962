package render

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/framecast/backend/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCompositor(t *testing.T, cfg *timeline.Config) *Compositor {
	t.Helper()
	c, err := New(cfg, Options{
		FPS:           30,
		AssetCacheDir: t.TempDir(),
		Logger:        zap.NewNop(),
	})
	require.NoError(t, err)
	return c
}

// fullRect builds a canvas-covering colored rect element.
func fullRect(w, h int, fill string) timeline.Element {
	return timeline.Element{
		Type: timeline.ElementShape, Shape: "rect",
		Width: float64(w), Height: float64(h), Fill: fill,
	}
}

func pixelAt(buf []byte, w, x, y int) (r, g, b, a byte) {
	i := (y*w + x) * 4
	return buf[i], buf[i+1], buf[i+2], buf[i+3]
}

func TestEmptyTrackList(t *testing.T) {
	c := newCompositor(t, &timeline.Config{Width: 64, Height: 36})
	require.NoError(t, c.Preload(context.Background()))

	assert.Equal(t, 0, c.FrameCount())
	calls := 0
	require.NoError(t, c.Render(context.Background(), func(int, []byte) error {
		calls++
		return nil
	}))
	assert.Equal(t, 0, calls)
}

func TestFrameCount(t *testing.T) {
	cfg := &timeline.Config{
		Width: 64, Height: 36,
		Tracks: []timeline.Track{
			{Type: timeline.TrackVideo, Scenes: []timeline.Scene{{Duration: 2}}},
			{Type: timeline.TrackAudio, Start: 1, Scenes: []timeline.Scene{{Duration: 2.5}}},
		},
	}
	c := newCompositor(t, cfg)
	require.NoError(t, c.Preload(context.Background()))

	// Audio track ends latest at 3.5s: ceil(3.5 * 30) = 105.
	assert.Equal(t, 105, c.FrameCount())
}

func TestTextSceneRenders(t *testing.T) {
	cfg := &timeline.Config{
		Width: 128, Height: 72,
		Tracks: []timeline.Track{{
			Type: timeline.TrackVideo,
			Scenes: []timeline.Scene{{
				Duration: 2,
				Elements: []timeline.Element{{
					Type: timeline.ElementText, Text: "Hi",
					FontSize: 40, Color: "#ffffff",
				}},
			}},
		}},
	}
	c := newCompositor(t, cfg)
	require.NoError(t, c.Preload(context.Background()))

	assert.Equal(t, 60, c.FrameCount())
	buf, err := c.RenderFrame(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, buf, 128*72*4)

	// Corners stay opaque black; somewhere near center the glyphs lit up.
	r, g, b, a := pixelAt(buf, 128, 0, 0)
	assert.Equal(t, [4]byte{0, 0, 0, 255}, [4]byte{r, g, b, a})

	lit := 0
	for y := 10; y < 62; y++ {
		for x := 20; x < 108; x++ {
			if r, _, _, _ := pixelAt(buf, 128, x, y); r > 0 {
				lit++
			}
		}
	}
	assert.Greater(t, lit, 5, "text pixels should be non-black")
}

func TestFadeInScenario(t *testing.T) {
	in := 1.0
	cfg := &timeline.Config{
		Width: 64, Height: 36,
		Tracks: []timeline.Track{{
			Type: timeline.TrackVideo,
			Scenes: []timeline.Scene{{
				Duration: 2,
				Elements: []timeline.Element{func() timeline.Element {
					el := fullRect(64, 36, "#ffffff")
					el.Animation = &timeline.Animation{Type: "fadeIn", FadeInDuration: &in}
					return el
				}()},
			}},
		}},
	}
	c, err := New(cfg, Options{FPS: 10, AssetCacheDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, c.Preload(context.Background()))

	frame := func(i int) []byte {
		buf, err := c.RenderFrame(context.Background(), i)
		require.NoError(t, err)
		return buf
	}

	r0, _, _, _ := pixelAt(frame(0), 64, 32, 18)
	assert.Equal(t, byte(0), r0, "frame 0 is black")

	r5, _, _, _ := pixelAt(frame(5), 64, 32, 18)
	assert.InDelta(t, 127, float64(r5), 2, "frame 5 is half white")

	r10, _, _, _ := pixelAt(frame(10), 64, 32, 18)
	assert.Equal(t, byte(255), r10, "frame 10 is white")
}

func TestKeyframeOpacityScenario(t *testing.T) {
	op0, op1 := 0.0, 1.0
	dur := 2.0
	el := fullRect(64, 36, "#ffffff")
	el.Duration = &dur
	el.Keyframes = []timeline.Keyframe{
		{Time: 0, Opacity: &op0},
		{Time: 1, Opacity: &op1, Easing: "linear"},
	}
	cfg := &timeline.Config{
		Width: 64, Height: 36,
		Tracks: []timeline.Track{{
			Type:   timeline.TrackVideo,
			Scenes: []timeline.Scene{{Duration: 2, Elements: []timeline.Element{el}}},
		}},
	}
	c, err := New(cfg, Options{FPS: 4, AssetCacheDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, c.Preload(context.Background()))

	want := []float64{0, 0.25, 0.5, 0.75, 1, 1, 1, 1}
	for i, alpha := range want {
		buf, err := c.RenderFrame(context.Background(), i)
		require.NoError(t, err)
		r, _, _, _ := pixelAt(buf, 64, 32, 18)
		assert.InDeltaf(t, alpha*255, float64(r), 2, "frame %d", i)
	}
}

func TestTrackZOrder(t *testing.T) {
	build := func(zRed, zBlue int) *timeline.Config {
		return &timeline.Config{
			Width: 64, Height: 36,
			Tracks: []timeline.Track{
				{
					Type: timeline.TrackVideo, ZIndex: zRed,
					Scenes: []timeline.Scene{{Duration: 1, Elements: []timeline.Element{fullRect(64, 36, "#ff0000")}}},
				},
				{
					Type: timeline.TrackVideo, ZIndex: zBlue,
					Scenes: []timeline.Scene{{Duration: 1, Elements: []timeline.Element{fullRect(64, 36, "#0000ff")}}},
				},
			},
		}
	}

	c := newCompositor(t, build(0, 10))
	require.NoError(t, c.Preload(context.Background()))
	buf, err := c.RenderFrame(context.Background(), 0)
	require.NoError(t, err)
	r, _, b, _ := pixelAt(buf, 64, 32, 18)
	assert.Equal(t, byte(0), r)
	assert.Equal(t, byte(255), b, "blue track is on top")

	c2 := newCompositor(t, build(10, 0))
	require.NoError(t, c2.Preload(context.Background()))
	buf2, err := c2.RenderFrame(context.Background(), 0)
	require.NoError(t, err)
	r2, _, b2, _ := pixelAt(buf2, 64, 32, 18)
	assert.Equal(t, byte(255), r2, "swapping zIndex swaps the visible color")
	assert.Equal(t, byte(0), b2)
}

func TestDeterminism(t *testing.T) {
	fadeDur := 0.8
	el := fullRect(40, 20, "#3366cc")
	el.Animation = &timeline.Animation{Type: "fadeIn", FadeInDuration: &fadeDur}
	cfg := &timeline.Config{
		Width: 64, Height: 36,
		Tracks: []timeline.Track{{
			Type: timeline.TrackVideo,
			Scenes: []timeline.Scene{{
				Duration:   2,
				BGColor:    "#101010",
				Transition: &timeline.Transition{Type: "fade", Duration: 0.5},
				Elements:   []timeline.Element{el},
			}},
		}},
	}
	c := newCompositor(t, cfg)
	require.NoError(t, c.Preload(context.Background()))

	for _, i := range []int{0, 7, 30} {
		a, err := c.RenderFrame(context.Background(), i)
		require.NoError(t, err)
		first := make([]byte, len(a))
		copy(first, a)
		b, err := c.RenderFrame(context.Background(), i)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(first, b), "frame %d must be byte-identical", i)
	}
}

func TestSceneLookupMatchesLinearScan(t *testing.T) {
	track := timeline.Track{
		Type: timeline.TrackVideo,
		Scenes: []timeline.Scene{
			{Duration: 1}, {Duration: 2.5}, {Duration: 0.5}, {Duration: 3},
		},
	}
	cfg := &timeline.Config{Width: 8, Height: 8, Tracks: []timeline.Track{track}}
	c := newCompositor(t, cfg)
	require.NoError(t, c.Preload(context.Background()))

	starts := c.sceneStarts[c.videoTracks[0]]
	linear := func(tt float64) int {
		at := 0.0
		for i, s := range track.Scenes {
			if tt >= at && tt < at+s.Duration {
				return i
			}
			at += s.Duration
		}
		return -1
	}

	for tt := 0.0; tt < 8; tt += 0.05 {
		k := activeScene(starts, tt)
		if k >= 0 && tt >= starts[k]+track.Scenes[k].Duration {
			k = -1
		}
		assert.Equalf(t, linear(tt), k, "t=%g", tt)
	}
}

func TestSceneTransitionFade(t *testing.T) {
	cfg := &timeline.Config{
		Width: 64, Height: 36,
		Tracks: []timeline.Track{{
			Type: timeline.TrackVideo,
			Scenes: []timeline.Scene{{
				Duration:   2,
				Transition: &timeline.Transition{Type: "fade", Duration: 1},
				Elements:   []timeline.Element{fullRect(64, 36, "#ffffff")},
			}},
		}},
	}
	c, err := New(cfg, Options{FPS: 10, AssetCacheDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, c.Preload(context.Background()))

	buf, err := c.RenderFrame(context.Background(), 5)
	require.NoError(t, err)
	r, _, _, _ := pixelAt(buf, 64, 32, 18)
	assert.InDelta(t, 127, float64(r), 3, "transition opacity applies to elements")
}

func TestPreloadParallelism(t *testing.T) {
	const delay = 80 * time.Millisecond
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.Write([]byte("img"))
	}))
	defer srv.Close()

	elements := make([]timeline.Element, 4)
	for i := range elements {
		elements[i] = timeline.Element{
			Type: timeline.ElementImage,
			URL:  srv.URL + "/" + string(rune('a'+i)) + ".png",
		}
	}
	cfg := &timeline.Config{
		Width: 8, Height: 8,
		Tracks: []timeline.Track{{
			Type:   timeline.TrackVideo,
			Scenes: []timeline.Scene{{Duration: 1, Elements: elements}},
		}},
	}
	c := newCompositor(t, cfg)

	start := time.Now()
	require.NoError(t, c.Preload(context.Background()))
	elapsed := time.Since(start)
	assert.Less(t, elapsed, 4*delay, "downloads must overlap")
}

func TestPreloadErrorAggregatesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := &timeline.Config{
		Width: 8, Height: 8,
		Tracks: []timeline.Track{{
			Type: timeline.TrackVideo,
			Scenes: []timeline.Scene{{
				Duration: 1,
				Elements: []timeline.Element{
					{Type: timeline.ElementImage, URL: srv.URL + "/one.png"},
					{Type: timeline.ElementImage, URL: srv.URL + "/two.png"},
				},
			}},
		}},
	}
	c := newCompositor(t, cfg)

	err := c.Preload(context.Background())
	require.Error(t, err)
	var perr *PreloadError
	require.ErrorAs(t, err, &perr)
	assert.Len(t, perr.Failed, 2, "all failures are collected, not short-circuited")
}

func TestRenderRequiresPreload(t *testing.T) {
	cfg := &timeline.Config{
		Width: 8, Height: 8,
		Tracks: []timeline.Track{{
			Type:   timeline.TrackVideo,
			Scenes: []timeline.Scene{{Duration: 1}},
		}},
	}
	c := newCompositor(t, cfg)
	_, err := c.RenderFrame(context.Background(), 0)
	assert.Error(t, err)
}

func TestPainterFailureSkipsElement(t *testing.T) {
	skipped := 0
	cfg := &timeline.Config{
		Width: 32, Height: 32,
		Tracks: []timeline.Track{{
			Type: timeline.TrackVideo,
			Scenes: []timeline.Scene{{
				Duration: 1,
				BGColor:  "#202020",
				Elements: []timeline.Element{
					// Video element with no extractor: painter errors.
					{Type: timeline.ElementVideo, URL: ""},
					fullRect(32, 32, "#ffffff"),
				},
			}},
		}},
	}
	c, err := New(cfg, Options{
		FPS:              10,
		AssetCacheDir:    t.TempDir(),
		OnElementSkipped: func() { skipped++ },
	})
	require.NoError(t, err)
	require.NoError(t, c.Preload(context.Background()))

	buf, err := c.RenderFrame(context.Background(), 0)
	require.NoError(t, err)
	r, _, _, _ := pixelAt(buf, 32, 16, 16)
	assert.Equal(t, byte(255), r, "surviving elements still paint")
	assert.Equal(t, 1, skipped)
}
