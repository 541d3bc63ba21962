package animation

import (
	"sort"

	"github.com/framecast/backend/internal/easing"
	"github.com/framecast/backend/internal/timeline"
)

// KeyframeState is the evaluated keyframe animation of an element. The
// Override flags mark properties the painter must substitute for the
// element's static attributes; when false, the static value stands.
type KeyframeState struct {
	Opacity  float64
	Scale    float64
	OffsetX  float64
	OffsetY  float64
	Rotation float64

	OffsetXOverride  bool
	OffsetYOverride  bool
	RotationOverride bool
}

// property identifies one interpolatable keyframe attribute.
type property struct {
	get func(*timeline.Keyframe) *float64
	def float64 // interpolation default when a bracket endpoint omits it
}

var properties = map[string]property{
	"opacity":  {func(k *timeline.Keyframe) *float64 { return k.Opacity }, 1},
	"scale":    {func(k *timeline.Keyframe) *float64 { return k.Scale }, 1},
	"offsetX":  {func(k *timeline.Keyframe) *float64 { return k.OffsetX }, 0},
	"offsetY":  {func(k *timeline.Keyframe) *float64 { return k.OffsetY }, 0},
	"rotation": {func(k *timeline.Keyframe) *float64 { return k.Rotation }, 0},
}

// ComputeKeyframeState interpolates every keyframe property at local scene
// time tLocal. Keyframes are evaluated in time order regardless of input
// order; the input slice is not mutated.
//
// When a bracket endpoint omits a property, its interpolation default (1
// for opacity and scale, 0 for offsets and rotation) is used for the
// missing side. With a non-zero static offset this produces a jump at the
// bracket edge; that discontinuity is part of the contract.
func ComputeKeyframeState(keyframes []timeline.Keyframe, tLocal, elStart float64) KeyframeState {
	st := KeyframeState{Opacity: 1, Scale: 1}
	if len(keyframes) == 0 {
		return st
	}

	sorted := make([]timeline.Keyframe, len(keyframes))
	copy(sorted, keyframes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	tau := tLocal - elStart

	// Positional brackets over the full keyframe list: prev is the last
	// keyframe at or before tau, next the first strictly after.
	prevIdx := -1
	for i := range sorted {
		if sorted[i].Time <= tau {
			prevIdx = i
		} else {
			break
		}
	}
	nextIdx := prevIdx + 1
	var prev, next *timeline.Keyframe
	if prevIdx >= 0 {
		prev = &sorted[prevIdx]
	}
	if nextIdx < len(sorted) {
		next = &sorted[nextIdx]
	}

	for name, p := range properties {
		value, ok := interpolate(p, prev, next, tau)
		if !ok {
			continue
		}
		switch name {
		case "opacity":
			st.Opacity = clamp01(value)
		case "scale":
			st.Scale = value
		case "offsetX":
			st.OffsetX = value
			st.OffsetXOverride = true
		case "offsetY":
			st.OffsetY = value
			st.OffsetYOverride = true
		case "rotation":
			st.Rotation = value
			st.RotationOverride = true
		}
	}
	return st
}

func interpolate(p property, prev, next *timeline.Keyframe, tau float64) (float64, bool) {
	switch {
	case prev != nil && next != nil:
		pv := p.get(prev)
		nv := p.get(next)
		if pv == nil && nv == nil {
			return 0, false
		}
		from, to := p.def, p.def
		if pv != nil {
			from = *pv
		}
		if nv != nil {
			to = *nv
		}
		span := next.Time - prev.Time
		if span <= 0 {
			return to, true
		}
		u := (tau - prev.Time) / span
		e := easing.ByName(next.Easing)(u)
		return from + (to-from)*e, true
	case prev != nil:
		if pv := p.get(prev); pv != nil {
			return *pv, true
		}
		return 0, false
	case next != nil:
		// Hold forward to the first defined value.
		if nv := p.get(next); nv != nil {
			return *nv, true
		}
		return 0, false
	default:
		return 0, false
	}
}
