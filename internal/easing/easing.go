// Package easing provides the scalar easing curves used by animations,
// keyframe interpolation and scene transitions. Every function maps
// t in [0,1] to an eased progress value; back, elastic and spring may
// transiently exceed 1.
package easing

import (
	"math"
	"strings"
)

// Func is a scalar easing curve.
type Func func(t float64) float64

const (
	backC1 = 1.70158
	backC2 = backC1 * 1.525
	backC3 = backC1 + 1
)

// Linear returns t unchanged.
func Linear(t float64) float64 { return t }

// EaseInQuad accelerates from zero velocity.
func EaseInQuad(t float64) float64 { return t * t }

// EaseOutQuad decelerates to zero velocity.
func EaseOutQuad(t float64) float64 { return 1 - (1-t)*(1-t) }

// EaseInOutQuad accelerates until halfway, then decelerates.
func EaseInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}

// EaseInCubic accelerates from zero velocity, cubically.
func EaseInCubic(t float64) float64 { return t * t * t }

// EaseOutCubic decelerates to zero velocity, cubically. This is the
// default curve wherever an easing is not specified.
func EaseOutCubic(t float64) float64 { return 1 - math.Pow(1-t, 3) }

// EaseInOutCubic accelerates until halfway, then decelerates.
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// EaseInBack pulls back slightly before accelerating.
func EaseInBack(t float64) float64 {
	return backC3*t*t*t - backC1*t*t
}

// EaseOutBack overshoots the target slightly before settling.
func EaseOutBack(t float64) float64 {
	return 1 + backC3*math.Pow(t-1, 3) + backC1*math.Pow(t-1, 2)
}

// EaseInOutBack pulls back, accelerates, then overshoots before settling.
func EaseInOutBack(t float64) float64 {
	if t < 0.5 {
		return (math.Pow(2*t, 2) * ((backC2+1)*2*t - backC2)) / 2
	}
	return (math.Pow(2*t-2, 2)*((backC2+1)*(t*2-2)+backC2) + 2) / 2
}

// EaseOutBounce decays through four bounces.
func EaseOutBounce(t float64) float64 {
	const n1 = 7.5625
	const d1 = 2.75
	switch {
	case t < 1/d1:
		return n1 * t * t
	case t < 2/d1:
		t -= 1.5 / d1
		return n1*t*t + 0.75
	case t < 2.5/d1:
		t -= 2.25 / d1
		return n1*t*t + 0.9375
	default:
		t -= 2.625 / d1
		return n1*t*t + 0.984375
	}
}

// EaseOutElastic oscillates past the target with exponential decay.
func EaseOutElastic(t float64) float64 {
	if t <= 0 || t >= 1 {
		return t
	}
	const c4 = 2 * math.Pi / 3
	return math.Pow(2, -10*t)*math.Sin((10*t-0.75)*c4) + 1
}

// Spring is a damped cosine with a period of roughly 0.3 that converges
// to 1, overshooting at least once on the way.
func Spring(t float64) float64 {
	return 1 - math.Cos(t*6.5*math.Pi)*math.Exp(-6*t)
}

var byName = map[string]Func{
	"linear":         Linear,
	"easeIn":         EaseInQuad,
	"easeInQuad":     EaseInQuad,
	"easeOut":        EaseOutQuad,
	"easeOutQuad":    EaseOutQuad,
	"easeInOut":      EaseInOutQuad,
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

// ByName resolves an easing curve by its timeline name. Unknown or empty
// names resolve to EaseOutCubic.
func ByName(name string) Func {
	if f, ok := byName[name]; ok {
		return f
	}
	if f, ok := byName[normalize(name)]; ok {
		return f
	}
	return EaseOutCubic
}

// Known reports whether name resolves to a defined curve.
func Known(name string) bool {
	if name == "" {
		return true
	}
	if _, ok := byName[name]; ok {
		return true
	}
	_, ok := byName[normalize(name)]
	return ok
}

var lowerNames = func() map[string]string {
	m := make(map[string]string, len(byName))
	for k := range byName {
		m[strings.ToLower(k)] = k
	}
	return m
}()

func normalize(name string) string {
	key := strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(name, "-", ""), "_", ""))
	if canonical, ok := lowerNames[key]; ok {
		return canonical
	}
	return name
}
