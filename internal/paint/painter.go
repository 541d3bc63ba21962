package paint

import (
	"context"

	"github.com/framecast/backend/internal/animation"
	"github.com/framecast/backend/internal/assets"
	"github.com/framecast/backend/internal/canvas"
	"github.com/framecast/backend/internal/timeline"
	"github.com/framecast/backend/internal/video"
	"go.uber.org/zap"
)

// Env carries the per-frame context a painter needs beyond the element
// itself: canvas size, clocks, the asset collaborators and the preset
// animation state (the typewriter painter reads its progress from it).
type Env struct {
	Ctx     context.Context
	CanvasW float64
	CanvasH float64

	SceneTime float64 // local scene clock
	LocalTime float64 // SceneTime - element start
	Duration  float64 // effective element lifetime
	FPS       float64

	Anim animation.State

	Assets    *assets.Loader
	Fonts     *assets.FontRegistry
	Audio     *assets.AudioSampler
	Extractor *video.FrameExtractor // set for video elements only

	Logger *zap.Logger
}

// Painter draws one element kind onto a layer. Errors are recoverable:
// the compositor logs them and skips the element for the frame.
type Painter func(l *canvas.Layer, el *timeline.Element, env *Env) error

// Painters returns the default painter registry, keyed by element tag.
func Painters() map[timeline.ElementType]Painter {
	return map[timeline.ElementType]Painter{
		timeline.ElementText:     Text,
		timeline.ElementCaption:  Caption,
		timeline.ElementImage:    Image,
		timeline.ElementVideo:    Video,
		timeline.ElementShape:    Shape,
		timeline.ElementSvg:      Svg,
		timeline.ElementWaveform: Waveform,
	}
}
