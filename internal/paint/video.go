package paint

import (
	"fmt"
	"math"

	"github.com/framecast/backend/internal/canvas"
	"github.com/framecast/backend/internal/timeline"
)

// videoFrameIndex resolves which extracted frame a video element shows at
// its current local time: the base index advanced by playback speed and
// trim, wrapped when looping, frozen on the last frame otherwise. Slow
// motion repeats frames; there is no interpolation.
func videoFrameIndex(el *timeline.Element, localTime, fps float64, totalFrames int) int {
	if totalFrames <= 0 {
		return 0
	}
	base := int(localTime*fps) + 1
	actual := int(math.Round(float64(base)*el.PlaybackSpeed())) + int(el.TrimStart*fps)
	if actual < 1 {
		actual = 1
	}
	if el.Loop {
		return (actual-1)%totalFrames + 1
	}
	if actual > totalFrames {
		return totalFrames
	}
	return actual
}

// Video draws the current frame of a video element, positioned and
// fitted exactly like a still image. Missing or undecodable frames skip
// the element for this frame only.
func Video(l *canvas.Layer, el *timeline.Element, env *Env) error {
	if env.Extractor == nil {
		return fmt.Errorf("no frame extractor for %q", el.URL)
	}
	idx := videoFrameIndex(el, env.LocalTime, env.FPS, env.Extractor.TotalFrames())
	if idx == 0 {
		return nil
	}
	img := env.Extractor.FrameImage(idx)
	if img == nil {
		return nil
	}
	drawImageBox(l.DC(), img, el, env)
	return nil
}
