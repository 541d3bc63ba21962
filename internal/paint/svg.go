package paint

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/framecast/backend/internal/assets"
	"github.com/framecast/backend/internal/canvas"
	"github.com/framecast/backend/internal/timeline"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const svgCacheSize = 16

// svgCache keeps rasterized SVGs keyed by content fingerprint and size,
// so each document rasterizes once per job.
var svgCache, _ = lru.New[string, image.Image](svgCacheSize)

// Svg rasterizes an SVG document (inline markup or fetched by URL) once,
// caches the bitmap and draws it like an image.
func Svg(l *canvas.Layer, el *timeline.Element, env *Env) error {
	markup := el.Markup
	if markup == "" {
		path, err := env.Assets.Fetch(env.Ctx, el.URL, assets.KindSvg)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		markup = string(data)
	}
	if markup == "" {
		return fmt.Errorf("svg element has neither url nor markup")
	}

	w, h := elementBox(el, 256, 256)
	img, err := rasterizeSvg(markup, int(w), int(h))
	if err != nil {
		return err
	}
	drawImageBox(l.DC(), img, el, env)
	return nil
}

func rasterizeSvg(markup string, w, h int) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("svg target size must be positive")
	}
	sum := sha1.Sum([]byte(markup))
	key := fmt.Sprintf("%s@%dx%d", hex.EncodeToString(sum[:8]), w, h)
	if img, ok := svgCache.Get(key); ok {
		return img, nil
	}

	icon, err := oksvg.ReadIconStream(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	svgCache.Add(key, rgba)
	return rgba, nil
}
