package paint

import (
	"fmt"
	"image"
	_ "image/gif" // register source decoders
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/fogleman/gg"
	"github.com/framecast/backend/internal/assets"
	"github.com/framecast/backend/internal/canvas"
	"github.com/framecast/backend/internal/timeline"
	lru "github.com/hashicorp/golang-lru/v2"
	xdraw "golang.org/x/image/draw"
)

const imageCacheSize = 32

// imageCache keeps decoded source images across frames. It is cleared by
// CleanupCaches when the job ends.
var imageCache, _ = lru.New[string, image.Image](imageCacheSize)

// loadImage decodes a local image file through the module cache.
func loadImage(path string) (image.Image, error) {
	if img, ok := imageCache.Get(path); ok {
		return img, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %q: %w", path, err)
	}
	imageCache.Add(path, img)
	return img, nil
}

// Image fetches, positions and draws a still image with the element's
// fit mode and optional rounded-corner clip.
func Image(l *canvas.Layer, el *timeline.Element, env *Env) error {
	path, err := env.Assets.Fetch(env.Ctx, el.URL, assets.KindImage)
	if err != nil {
		return err
	}
	img, err := loadImage(path)
	if err != nil {
		return err
	}
	drawImageBox(l.DC(), img, el, env)
	return nil
}

// drawImageBox is the shared draw path for image-like sources: resolve
// the box, apply fit, clip rounded corners, draw under the layer's
// transform.
func drawImageBox(dc *gg.Context, img image.Image, el *timeline.Element, env *Env) {
	bounds := img.Bounds()
	w, h := elementBox(el, float64(bounds.Dx()), float64(bounds.Dy()))
	if w <= 0 || h <= 0 {
		return
	}
	x, y := ComputePosition(el.Position, env.CanvasW, env.CanvasH, w, h, el.OffsetX, el.OffsetY)

	srcRect, _ := FitRects(el.Fit, bounds.Dx(), bounds.Dy(), x, y, w, h)
	scaled := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, srcRect.Add(bounds.Min), xdraw.Over, nil)

	if el.BorderRadius > 0 {
		dc.DrawRoundedRectangle(x, y, w, h, el.BorderRadius)
		dc.Clip()
		defer dc.ResetClip()
	}
	dc.DrawImage(scaled, int(x), int(y))
}

// CleanupCaches clears the module-level painter caches. Called by the
// compositor's Close to bound long-running server memory.
func CleanupCaches() {
	imageCache.Purge()
	svgCache.Purge()
	CleanupMeasurer()
}
