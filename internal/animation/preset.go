// Package animation evaluates preset animations, keyframe interpolation
// and scene transitions into the transform/opacity state the compositor
// applies around each painter call.
package animation

import (
	"math"

	"github.com/framecast/backend/internal/easing"
	"github.com/framecast/backend/internal/timeline"
)

// State is the evaluated animation of an element at one instant.
type State struct {
	Opacity float64
	TX      float64
	TY      float64
	Scale   float64
}

// Identity is the state of an element with no active animation.
func Identity() State {
	return State{Opacity: 1, TX: 0, TY: 0, Scale: 1}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// ComputeElementAnimation evaluates a preset animation at local scene time
// tLocal for an element starting at elStart with the given lifetime, on a
// w by h canvas.
func ComputeElementAnimation(anim *timeline.Animation, tLocal, elStart, elDuration float64, w, h float64) State {
	st := Identity()
	if anim == nil || anim.Type == "" {
		return st
	}

	tau := tLocal - elStart
	tauEnd := (elStart + elDuration) - tLocal
	in := anim.In()
	out := anim.Out()

	inPhase := in > 0 && tau < in
	outPhase := out > 0 && tauEnd < out

	switch anim.Type {
	case "fadeIn":
		if inPhase {
			st.Opacity = tau / in
		}
	case "fadeOut":
		if outPhase {
			st.Opacity = tauEnd / out
		}
	case "fadeInOut":
		if inPhase {
			st.Opacity = tau / in
		} else if outPhase {
			st.Opacity = tauEnd / out
		}
	case "slideInLeft", "slideInRight", "slideInTop", "slideInBottom":
		if inPhase {
			p := easing.EaseOutCubic(tau / in)
			switch anim.Type {
			case "slideInLeft":
				st.TX = -w * (1 - p)
			case "slideInRight":
				st.TX = w * (1 - p)
			case "slideInTop":
				st.TY = -h * (1 - p)
			case "slideInBottom":
				st.TY = h * (1 - p)
			}
			st.Opacity = p
		}
	case "slideOutLeft", "slideOutRight", "slideOutTop", "slideOutBottom":
		if outPhase {
			p := easing.EaseOutCubic(1 - tauEnd/out)
			switch anim.Type {
			case "slideOutLeft":
				st.TX = -w * p
			case "slideOutRight":
				st.TX = w * p
			case "slideOutTop":
				st.TY = -h * p
			case "slideOutBottom":
				st.TY = h * p
			}
			st.Opacity = 1 - p
		}
	case "zoomIn":
		if inPhase {
			p := easing.EaseOutCubic(tau / in)
			st.Scale = p
			st.Opacity = p
		}
	case "zoomOut":
		if outPhase {
			p := easing.EaseOutCubic(tauEnd / out)
			st.Scale = p
			st.Opacity = p
		}
	case "bounce":
		if inPhase {
			p := easing.EaseOutBounce(tau / in)
			st.TY = -0.3 * h * (1 - p)
			st.Opacity = math.Min(1, tau/(0.3*in))
		}
	case "pop":
		if inPhase {
			st.Scale = easing.EaseOutBack(tau / in)
			st.Opacity = math.Min(1, tau/(0.3*in))
		}
	case "shake":
		if inPhase {
			p := tau / in
			st.TX = 10 * (1 - p) * math.Sin(p*24*math.Pi)
		}
	case "typewriter":
		// Scale doubles as the reveal progress consumed by the text painter.
		if inPhase {
			st.Scale = tau / in
		}
	}

	st.Opacity = clamp01(st.Opacity)
	return st
}
