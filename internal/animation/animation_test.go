package animation

import (
	"math/rand"
	"testing"

	"github.com/framecast/backend/internal/timeline"
	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestComputeElementAnimation(t *testing.T) {
	const w, h = 1280.0, 720.0

	t.Run("nil animation is identity", func(t *testing.T) {
		st := ComputeElementAnimation(nil, 1, 0, 5, w, h)
		assert.Equal(t, Identity(), st)
	})

	t.Run("fadeIn ramps opacity", func(t *testing.T) {
		anim := &timeline.Animation{Type: "fadeIn", FadeInDuration: f(1)}
		assert.InDelta(t, 0, ComputeElementAnimation(anim, 0, 0, 5, w, h).Opacity, 1e-9)
		assert.InDelta(t, 0.5, ComputeElementAnimation(anim, 0.5, 0, 5, w, h).Opacity, 1e-9)
		assert.InDelta(t, 1, ComputeElementAnimation(anim, 1, 0, 5, w, h).Opacity, 1e-9)
		assert.InDelta(t, 1, ComputeElementAnimation(anim, 3, 0, 5, w, h).Opacity, 1e-9)
	})

	t.Run("fadeOut ramps opacity near the end", func(t *testing.T) {
		anim := &timeline.Animation{Type: "fadeOut", FadeOutDuration: f(1)}
		assert.InDelta(t, 1, ComputeElementAnimation(anim, 3, 0, 5, w, h).Opacity, 1e-9)
		assert.InDelta(t, 0.5, ComputeElementAnimation(anim, 4.5, 0, 5, w, h).Opacity, 1e-9)
	})

	t.Run("slideInLeft starts offscreen", func(t *testing.T) {
		anim := &timeline.Animation{Type: "slideInLeft", FadeInDuration: f(1)}
		st := ComputeElementAnimation(anim, 0, 0, 5, w, h)
		assert.InDelta(t, -w, st.TX, 1e-9)
		assert.InDelta(t, 0, st.Opacity, 1e-9)

		st = ComputeElementAnimation(anim, 1, 0, 5, w, h)
		assert.InDelta(t, 0, st.TX, 1e-9)
		assert.InDelta(t, 1, st.Opacity, 1e-9)
	})

	t.Run("zoomIn scales up", func(t *testing.T) {
		anim := &timeline.Animation{Type: "zoomIn", FadeInDuration: f(1)}
		st := ComputeElementAnimation(anim, 0, 0, 5, w, h)
		assert.InDelta(t, 0, st.Scale, 1e-9)
		st = ComputeElementAnimation(anim, 2, 0, 5, w, h)
		assert.InDelta(t, 1, st.Scale, 1e-9)
	})

	t.Run("bounce lifts then settles", func(t *testing.T) {
		anim := &timeline.Animation{Type: "bounce", FadeInDuration: f(1)}
		st := ComputeElementAnimation(anim, 0, 0, 5, w, h)
		assert.InDelta(t, -0.3*h, st.TY, 1e-9)
		st = ComputeElementAnimation(anim, 0.9, 0, 5, w, h)
		assert.InDelta(t, 1, st.Opacity, 1e-9)
	})

	t.Run("element start shifts the clock", func(t *testing.T) {
		anim := &timeline.Animation{Type: "fadeIn", FadeInDuration: f(1)}
		assert.InDelta(t, 0.5, ComputeElementAnimation(anim, 2.5, 2, 3, w, h).Opacity, 1e-9)
	})

	t.Run("opacity never exceeds one", func(t *testing.T) {
		anim := &timeline.Animation{Type: "pop", FadeInDuration: f(1)}
		for i := 0; i <= 20; i++ {
			st := ComputeElementAnimation(anim, float64(i)*0.05, 0, 5, w, h)
			assert.LessOrEqual(t, st.Opacity, 1.0)
			assert.GreaterOrEqual(t, st.Opacity, 0.0)
		}
	})
}

func TestComputeKeyframeState(t *testing.T) {
	t.Run("linear opacity ramp", func(t *testing.T) {
		kfs := []timeline.Keyframe{
			{Time: 0, Opacity: f(0)},
			{Time: 1, Opacity: f(1), Easing: "linear"},
		}
		// Matches the documented 2s element at fps 4: frames 0..7.
		want := []float64{0, 0.25, 0.5, 0.75, 1, 1, 1, 1}
		for i, expected := range want {
			st := ComputeKeyframeState(kfs, float64(i)*0.25, 0)
			assert.InDeltaf(t, expected, st.Opacity, 1e-9, "frame %d", i)
		}
	})

	t.Run("input order does not matter", func(t *testing.T) {
		kfs := []timeline.Keyframe{
			{Time: 0, Opacity: f(0), OffsetX: f(0)},
			{Time: 1, Opacity: f(0.5), OffsetX: f(100), Easing: "linear"},
			{Time: 2, Opacity: f(1), OffsetX: f(50), Easing: "linear"},
		}
		shuffled := make([]timeline.Keyframe, len(kfs))
		copy(shuffled, kfs)
		rng := rand.New(rand.NewSource(7))
		for trial := 0; trial < 10; trial++ {
			rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			for _, tau := range []float64{0, 0.3, 1, 1.7, 2, 2.5} {
				assert.Equal(t, ComputeKeyframeState(kfs, tau, 0), ComputeKeyframeState(shuffled, tau, 0))
			}
		}
	})

	t.Run("absent property is not overridden", func(t *testing.T) {
		kfs := []timeline.Keyframe{
			{Time: 0, Opacity: f(0)},
			{Time: 1, Opacity: f(1)},
		}
		st := ComputeKeyframeState(kfs, 0.5, 0)
		assert.False(t, st.OffsetXOverride)
		assert.False(t, st.OffsetYOverride)
		assert.False(t, st.RotationOverride)
	})

	t.Run("hold before first and after last", func(t *testing.T) {
		kfs := []timeline.Keyframe{
			{Time: 1, OffsetX: f(40)},
			{Time: 2, OffsetX: f(80), Easing: "linear"},
		}
		before := ComputeKeyframeState(kfs, 0.5, 0)
		assert.True(t, before.OffsetXOverride)
		assert.InDelta(t, 40, before.OffsetX, 1e-9)

		after := ComputeKeyframeState(kfs, 3, 0)
		assert.InDelta(t, 80, after.OffsetX, 1e-9)
	})

	t.Run("missing endpoint interpolates from the default", func(t *testing.T) {
		// offsetX only defined on the second keyframe: the first bracket
		// side contributes the default 0, so the value ramps 0 -> 60.
		kfs := []timeline.Keyframe{
			{Time: 0, Opacity: f(1)},
			{Time: 1, OffsetX: f(60), Easing: "linear"},
		}
		st := ComputeKeyframeState(kfs, 0.5, 0)
		assert.True(t, st.OffsetXOverride)
		assert.InDelta(t, 30, st.OffsetX, 1e-9)
	})

	t.Run("times are relative to element start", func(t *testing.T) {
		kfs := []timeline.Keyframe{
			{Time: 0, Scale: f(1)},
			{Time: 1, Scale: f(2), Easing: "linear"},
		}
		st := ComputeKeyframeState(kfs, 2.5, 2)
		assert.InDelta(t, 1.5, st.Scale, 1e-9)
	})
}

func TestComputeSceneTransition(t *testing.T) {
	const w, h = 1000.0, 500.0

	t.Run("identity without transition", func(t *testing.T) {
		st := ComputeSceneTransition(nil, 0.1, w, h)
		assert.True(t, st.IsIdentity())
	})

	t.Run("identity after the window", func(t *testing.T) {
		tr := &timeline.Transition{Type: "fade", Duration: 0.5}
		assert.True(t, ComputeSceneTransition(tr, 0.5, w, h).IsIdentity())
		assert.True(t, ComputeSceneTransition(tr, 2, w, h).IsIdentity())
	})

	t.Run("fade tracks raw progress", func(t *testing.T) {
		tr := &timeline.Transition{Type: "fade", Duration: 1}
		assert.InDelta(t, 0.25, ComputeSceneTransition(tr, 0.25, w, h).Opacity, 1e-9)
	})

	t.Run("slide starts a full canvas away", func(t *testing.T) {
		tr := &timeline.Transition{Type: "slideLeft", Duration: 1}
		st := ComputeSceneTransition(tr, 0, w, h)
		assert.InDelta(t, w, st.TX, 1e-9)
		assert.InDelta(t, 1, st.Opacity, 1e-9)
	})

	t.Run("wipe fades with parallax", func(t *testing.T) {
		tr := &timeline.Transition{Type: "wipeUp", Duration: 1}
		st := ComputeSceneTransition(tr, 0, w, h)
		assert.InDelta(t, 0, st.Opacity, 1e-9)
		assert.InDelta(t, 0.10*h, st.TY, 1e-9)
	})

	t.Run("zoomIn grows from half scale", func(t *testing.T) {
		tr := &timeline.Transition{Type: "zoomIn", Duration: 1}
		st := ComputeSceneTransition(tr, 0, w, h)
		assert.InDelta(t, 0.5, st.Scale, 1e-9)
	})
}
