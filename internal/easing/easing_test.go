package easing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpoints(t *testing.T) {
	curves := map[string]Func{
		"linear":         Linear,
		"easeInQuad":     EaseInQuad,
		"easeOutQuad":    EaseOutQuad,
		"easeInOutQuad":  EaseInOutQuad,
		"easeInCubic":    EaseInCubic,
		"easeOutCubic":   EaseOutCubic,
		"easeInOutCubic": EaseInOutCubic,
		"easeInBack":     EaseInBack,
		"easeOutBack":    EaseOutBack,
		"easeInOutBack":  EaseInOutBack,
		"easeOutBounce":  EaseOutBounce,
		"easeOutElastic": EaseOutElastic,
		"spring":         Spring,
	}

	for name, f := range curves {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, 0, f(0), 1e-6, "f(0)")
			assert.InDelta(t, 1, f(1), 1e-6, "f(1)")
		})
	}
}

func TestEaseInOutSymmetry(t *testing.T) {
	assert.InDelta(t, 1, EaseInOutQuad(0.25)+EaseInOutQuad(0.75), 0.05)
	assert.InDelta(t, 1, EaseInOutCubic(0.25)+EaseInOutCubic(0.75), 0.05)
}

func TestOvershoot(t *testing.T) {
	t.Run("easeOutBack exceeds 1", func(t *testing.T) {
		max := 0.0
		for i := 0; i <= 100; i++ {
			if v := EaseOutBack(float64(i) / 100); v > max {
				max = v
			}
		}
		assert.Greater(t, max, 1.0)
	})

	t.Run("easeOutElastic exceeds 1", func(t *testing.T) {
		max := 0.0
		for i := 0; i <= 1000; i++ {
			if v := EaseOutElastic(float64(i) / 1000); v > max {
				max = v
			}
		}
		assert.Greater(t, max, 1.0)
	})

	t.Run("spring overshoots at least once", func(t *testing.T) {
		overshoot := false
		for i := 0; i <= 1000; i++ {
			if Spring(float64(i)/1000) > 1.0 {
				overshoot = true
				break
			}
		}
		assert.True(t, overshoot)
	})
}

func TestEaseOutBounceShape(t *testing.T) {
	// Monotonic within the first segment, dips between bounces.
	assert.InDelta(t, 7.5625*0.09, EaseOutBounce(0.3), 1e-9)
	assert.Less(t, EaseOutBounce(0.45), 1.0)
	assert.Less(t, math.Abs(EaseOutBounce(1)-1), 1e-9)
}

func TestByName(t *testing.T) {
	assert.InDelta(t, 0.5, ByName("linear")(0.5), 1e-9)
	// Default and unknown names fall back to easeOutCubic.
	assert.InDelta(t, EaseOutCubic(0.3), ByName("")(0.3), 1e-9)
	assert.InDelta(t, EaseOutCubic(0.3), ByName("nope")(0.3), 1e-9)
	// Case and separators are forgiven.
	assert.InDelta(t, EaseOutBounce(0.3), ByName("ease-out-bounce")(0.3), 1e-9)

	assert.True(t, Known("easeOutElastic"))
	assert.True(t, Known(""))
	assert.False(t, Known("wobble"))
}
