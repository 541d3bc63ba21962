package animation

import (
	"github.com/framecast/backend/internal/easing"
	"github.com/framecast/backend/internal/timeline"
)

// TransitionState is the whole-scene transform active while a scene
// transition plays.
type TransitionState struct {
	Opacity float64
	TX      float64
	TY      float64
	Scale   float64
}

// IdentityTransition is the state outside any transition window.
func IdentityTransition() TransitionState {
	return TransitionState{Opacity: 1, Scale: 1}
}

// IsIdentity reports whether the state applies no visible change.
func (s TransitionState) IsIdentity() bool {
	return s.Opacity == 1 && s.TX == 0 && s.TY == 0 && s.Scale == 1
}

// HasTransform reports whether the state moves or scales the scene.
func (s TransitionState) HasTransform() bool {
	return s.TX != 0 || s.TY != 0 || s.Scale != 1
}

// ComputeSceneTransition evaluates a scene transition at local scene time
// sScene. After the transition window it returns identity.
//
// Wipes render as a fade with a small parallax on the wipe axis rather
// than a clip mask; this mirrors the reference renderer.
func ComputeSceneTransition(trans *timeline.Transition, sScene float64, w, h float64) TransitionState {
	st := IdentityTransition()
	if trans == nil || trans.Duration <= 0 || sScene >= trans.Duration || sScene < 0 {
		return st
	}

	p := sScene / trans.Duration
	e := easing.EaseOutCubic(p)

	switch trans.Type {
	case "fade":
		st.Opacity = p
	case "slideLeft":
		st.TX = w * (1 - e)
	case "slideRight":
		st.TX = -w * (1 - e)
	case "slideUp":
		st.TY = h * (1 - e)
	case "slideDown":
		st.TY = -h * (1 - e)
	case "wipeLeft":
		st.Opacity = e
		st.TX = 0.10 * w * (1 - e)
	case "wipeRight":
		st.Opacity = e
		st.TX = -0.10 * w * (1 - e)
	case "wipeUp":
		st.Opacity = e
		st.TY = 0.10 * h * (1 - e)
	case "wipeDown":
		st.Opacity = e
		st.TY = -0.10 * h * (1 - e)
	case "zoomIn":
		st.Scale = 0.5 + 0.5*e
		st.Opacity = e
	case "zoomOut":
		st.Scale = 1.5 - 0.5*e
		st.Opacity = e
	}

	st.Opacity = clamp01(st.Opacity)
	return st
}
