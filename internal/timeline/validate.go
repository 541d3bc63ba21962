package timeline

import (
	"encoding/json"
	"fmt"

	"github.com/framecast/backend/internal/easing"
)

// ConfigError reports an invalid timeline. It is fatal and detected at
// construction, never at render time.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("timeline: %s: %s", e.Field, e.Msg)
}

func configErrorf(field, format string, args ...interface{}) error {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ParseConfig decodes and validates a JSON timeline.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Field: "json", Msg: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validPositions = map[Position]struct{}{
	PosTopLeft: {}, PosTopCenter: {}, PosTopRight: {},
	PosCenterLeft: {}, PosCenter: {}, PosCenterRight: {},
	PosBottomLeft: {}, PosBottomCenter: {}, PosBottomRight: {},
	PosLeft: {}, PosRight: {},
}

var validTransitions = map[string]struct{}{
	"fade": {}, "slideLeft": {}, "slideRight": {}, "slideUp": {}, "slideDown": {},
	"wipeLeft": {}, "wipeRight": {}, "wipeUp": {}, "wipeDown": {},
	"zoomIn": {}, "zoomOut": {},
}

var validAnimations = map[string]struct{}{
	"fadeIn": {}, "fadeOut": {}, "fadeInOut": {},
	"slideInLeft": {}, "slideInRight": {}, "slideInTop": {}, "slideInBottom": {},
	"slideOutLeft": {}, "slideOutRight": {}, "slideOutTop": {}, "slideOutBottom": {},
	"zoomIn": {}, "zoomOut": {}, "bounce": {}, "pop": {}, "shake": {}, "typewriter": {},
}

var validBlendModes = map[string]struct{}{
	"normal": {}, "multiply": {}, "screen": {}, "overlay": {},
	"darken": {}, "lighten": {}, "color-dodge": {}, "color-burn": {},
	"hard-light": {}, "soft-light": {}, "difference": {}, "exclusion": {},
	"hue": {}, "saturation": {}, "color": {}, "luminosity": {},
}

var validShapes = map[string]struct{}{
	"rect": {}, "rounded-rect": {}, "circle": {}, "ellipse": {},
	"line": {}, "polygon": {}, "star": {},
}

// Validate checks the full config tree. An empty track list is valid and
// renders zero frames.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return configErrorf("dimensions", "width and height must be positive, got %dx%d", c.Width, c.Height)
	}
	for ti := range c.Tracks {
		track := &c.Tracks[ti]
		field := fmt.Sprintf("tracks[%d]", ti)
		if track.Type != TrackVideo && track.Type != TrackAudio {
			return configErrorf(field+".type", "unknown track type %q", track.Type)
		}
		if track.Start < 0 {
			return configErrorf(field+".start", "must not be negative, got %g", track.Start)
		}
		for si := range track.Scenes {
			if err := validateScene(&track.Scenes[si], fmt.Sprintf("%s.scenes[%d]", field, si)); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateScene(s *Scene, field string) error {
	if s.Duration <= 0 {
		return configErrorf(field+".duration", "must be positive, got %g", s.Duration)
	}
	if !ValidColor(s.BGColor) {
		return configErrorf(field+".bgColor", "invalid color %q", s.BGColor)
	}
	if s.BGGradient != nil {
		for i, c := range s.BGGradient.Colors {
			if !ValidColor(c) {
				return configErrorf(fmt.Sprintf("%s.bgGradient.colors[%d]", field, i), "invalid color %q", c)
			}
		}
	}
	if tr := s.Transition; tr != nil {
		if _, ok := validTransitions[tr.Type]; !ok {
			return configErrorf(field+".transition.type", "unknown transition %q", tr.Type)
		}
		if tr.Duration <= 0 {
			return configErrorf(field+".transition.duration", "must be positive, got %g", tr.Duration)
		}
	}
	if ov := s.ColorOverlay; ov != nil {
		if !ValidColor(ov.Color) {
			return configErrorf(field+".colorOverlay.color", "invalid color %q", ov.Color)
		}
		if ov.BlendMode != "" {
			if _, ok := validBlendModes[ov.BlendMode]; !ok {
				return configErrorf(field+".colorOverlay.blendMode", "unknown blend mode %q", ov.BlendMode)
			}
		}
	}
	for ei := range s.Elements {
		if err := validateElement(&s.Elements[ei], fmt.Sprintf("%s.elements[%d]", field, ei)); err != nil {
			return err
		}
	}
	return nil
}

func validateElement(e *Element, field string) error {
	switch e.Type {
	case ElementText, ElementCaption, ElementImage, ElementVideo, ElementShape, ElementSvg, ElementWaveform:
	default:
		return configErrorf(field+".type", "unknown element type %q", e.Type)
	}
	if e.Start < 0 {
		return configErrorf(field+".start", "must not be negative, got %g", e.Start)
	}
	if e.Duration != nil && *e.Duration <= 0 {
		return configErrorf(field+".duration", "must be positive, got %g", *e.Duration)
	}
	if e.Opacity != nil && (*e.Opacity < 0 || *e.Opacity > 1) {
		return configErrorf(field+".opacity", "must be in [0,1], got %g", *e.Opacity)
	}
	if e.Position != "" {
		if _, ok := validPositions[e.Position]; !ok {
			return configErrorf(field+".position", "unknown position %q", e.Position)
		}
	}
	if e.Fit != "" && e.Fit != FitCover && e.Fit != FitContain && e.Fit != FitFill {
		return configErrorf(field+".fit", "unknown fit %q", e.Fit)
	}
	if e.BlendMode != "" {
		if _, ok := validBlendModes[e.BlendMode]; !ok {
			return configErrorf(field+".blendMode", "unknown blend mode %q", e.BlendMode)
		}
	}
	if a := e.Animation; a != nil && a.Type != "" {
		if _, ok := validAnimations[a.Type]; !ok {
			return configErrorf(field+".animation.type", "unknown animation %q", a.Type)
		}
	}
	for ki, kf := range e.Keyframes {
		if kf.Time < 0 {
			return configErrorf(fmt.Sprintf("%s.keyframes[%d].time", field, ki), "must not be negative, got %g", kf.Time)
		}
		if !easing.Known(kf.Easing) {
			return configErrorf(fmt.Sprintf("%s.keyframes[%d].easing", field, ki), "unknown easing %q", kf.Easing)
		}
	}
	if e.TextAlign != "" && e.TextAlign != "left" && e.TextAlign != "center" && e.TextAlign != "right" {
		return configErrorf(field+".textAlign", "unknown alignment %q", e.TextAlign)
	}
	if e.Type == ElementWaveform && e.Style != "" && e.Style != "bars" && e.Style != "line" {
		return configErrorf(field+".style", "unknown waveform style %q", e.Style)
	}
	if e.Type == ElementShape && e.Shape != "" {
		if _, ok := validShapes[e.Shape]; !ok {
			return configErrorf(field+".shape", "unknown shape %q", e.Shape)
		}
	}
	if e.Type == ElementVideo && e.Speed < 0 {
		return configErrorf(field+".speed", "must not be negative, got %g", e.Speed)
	}
	return nil
}
