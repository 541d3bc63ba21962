// Package render contains the timeline compositor: the deterministic
// mapping from (frame index, timeline config) to an RGBA pixel buffer,
// plus the preload planner that acquires assets and pre-computes render
// order before the first frame.
package render

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/fogleman/gg"
	"github.com/framecast/backend/internal/animation"
	"github.com/framecast/backend/internal/assets"
	"github.com/framecast/backend/internal/canvas"
	"github.com/framecast/backend/internal/paint"
	"github.com/framecast/backend/internal/timeline"
	"github.com/framecast/backend/internal/video"
	"go.uber.org/zap"
)

// Options configures a compositor instance.
type Options struct {
	FPS           float64 // default 30
	FFmpegPath    string  // default "ffmpeg"
	AssetCacheDir string  // default <tmp>/framecast-assets
	Logger        *zap.Logger

	// Hooks are optional observability callbacks.
	OnFrameRendered  func()
	OnElementSkipped func()
}

// Compositor renders one timeline. A single render loop owns the surface;
// RenderFrame must not be called concurrently on the same instance. For
// multi-core throughput the host creates one compositor per worker.
type Compositor struct {
	cfg    *timeline.Config
	fps    float64
	opts   Options
	logger *zap.Logger

	surface  *canvas.Surface
	loader   *assets.Loader
	fonts    *assets.FontRegistry
	audio    *assets.AudioSampler
	painters map[timeline.ElementType]paint.Painter

	extractors map[string]*video.FrameExtractor

	// Pre-computed by Preload.
	videoTracks []*timeline.Track
	sceneStarts map[*timeline.Track][]float64
	elemOrder   map[*timeline.Scene][]*timeline.Element
	preloaded   bool
}

// New creates a compositor for a validated config.
func New(cfg *timeline.Config, opts Options) (*Compositor, error) {
	if cfg == nil {
		return nil, &timeline.ConfigError{Field: "config", Msg: "missing"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.AssetCacheDir == "" {
		opts.AssetCacheDir = filepath.Join(os.TempDir(), "framecast-assets")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	loader, err := assets.NewLoader(opts.AssetCacheDir, opts.Logger)
	if err != nil {
		return nil, err
	}
	fonts, err := assets.NewFontRegistry(loader, opts.Logger)
	if err != nil {
		return nil, err
	}

	return &Compositor{
		cfg:        cfg,
		fps:        opts.FPS,
		opts:       opts,
		logger:     opts.Logger,
		surface:    canvas.New(cfg.Width, cfg.Height),
		loader:     loader,
		fonts:      fonts,
		audio:      assets.NewAudioSampler(loader, opts.Logger),
		painters:   paint.Painters(),
		extractors: make(map[string]*video.FrameExtractor),
	}, nil
}

// FPS returns the output frame rate.
func (c *Compositor) FPS() float64 { return c.fps }

// FrameCount returns ceil(maxTrackEnd * fps). Audio tracks extend the
// duration even though they are not composited.
func (c *Compositor) FrameCount() int {
	maxEnd := 0.0
	for i := range c.cfg.Tracks {
		if end := c.cfg.Tracks[i].End(); end > maxEnd {
			maxEnd = end
		}
	}
	return int(math.Ceil(maxEnd * c.fps))
}

// AudioInput is one scene audio attachment with its absolute start time,
// for the downstream encoder.
type AudioInput struct {
	URL    string
	Path   string
	Start  float64
	Volume float64
}

// AudioTimeline returns the audio attachments across all tracks in
// absolute time order. Paths are resolved when preload has run.
func (c *Compositor) AudioTimeline() []AudioInput {
	var out []AudioInput
	for ti := range c.cfg.Tracks {
		track := &c.cfg.Tracks[ti]
		at := track.Start
		for si := range track.Scenes {
			scene := &track.Scenes[si]
			if scene.Audio != nil && scene.Audio.URL != "" {
				volume := scene.Audio.Volume
				if volume <= 0 {
					volume = 1
				}
				in := AudioInput{URL: scene.Audio.URL, Start: at, Volume: volume}
				if path, err := c.loader.Fetch(context.Background(), in.URL, assets.KindAudio); err == nil {
					in.Path = path
				}
				out = append(out, in)
			}
			at += scene.Duration
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// RenderFrame composes the frame at the given zero-based index and
// returns its pixels: width*height*4 bytes, row-major, top-down, 8-bit
// non-premultiplied RGBA. It either returns a fully composed frame or an
// error; recoverable painter failures only skip their element.
func (c *Compositor) RenderFrame(ctx context.Context, frameIndex int) ([]byte, error) {
	if !c.preloaded {
		return nil, fmt.Errorf("render: Preload must run before RenderFrame")
	}
	if frameIndex < 0 {
		return nil, fmt.Errorf("render: negative frame index %d", frameIndex)
	}

	tAbs := float64(frameIndex) / c.fps
	w := float64(c.cfg.Width)
	h := float64(c.cfg.Height)

	c.surface.Reset()
	c.surface.Clear(color.RGBA{A: 255})

	firstTrack := true
	for _, track := range c.videoTracks {
		tTrack := tAbs - track.Start
		if tTrack < 0 {
			continue
		}
		starts := c.sceneStarts[track]
		k := activeScene(starts, tTrack)
		if k < 0 {
			continue
		}
		scene := &track.Scenes[k]
		if tTrack >= starts[k]+scene.Duration {
			continue
		}
		sScene := tTrack - starts[k]

		c.paintBackground(scene, firstTrack)
		firstTrack = false

		trans := animation.ComputeSceneTransition(scene.Transition, sScene, w, h)
		sceneSaved := trans.HasTransform()
		if sceneSaved {
			c.surface.Save()
			if trans.TX != 0 || trans.TY != 0 {
				c.surface.Translate(trans.TX, trans.TY)
			}
			if trans.Scale != 1 {
				c.surface.ScaleAbout(trans.Scale, w/2, h/2)
			}
		}

		for _, el := range c.elemOrder[scene] {
			if !el.VisibleAt(sScene, scene.Duration) {
				continue
			}
			c.paintElement(ctx, el, scene, sScene, trans)
		}

		if scene.Vignette != nil {
			c.paintVignette(scene.Vignette)
		}
		if scene.ColorOverlay != nil {
			c.paintColorOverlay(scene.ColorOverlay)
		}

		if sceneSaved {
			c.surface.Restore()
		}
	}

	if c.opts.OnFrameRendered != nil {
		c.opts.OnFrameRendered()
	}
	return c.surface.RGBA(), nil
}

// activeScene returns the greatest index k with starts[k] <= t, or -1.
func activeScene(starts []float64, t float64) int {
	return sort.Search(len(starts), func(i int) bool { return starts[i] > t }) - 1
}

// paintBackground fills the scene background. The first rendered track
// always paints over the initial black; later tracks only paint when the
// scene declares a background.
func (c *Compositor) paintBackground(scene *timeline.Scene, firstTrack bool) {
	if scene.BGGradient != nil && len(scene.BGGradient.Colors) >= 2 {
		stops := make([]color.RGBA, len(scene.BGGradient.Colors))
		for i, s := range scene.BGGradient.Colors {
			stops[i] = timeline.ParseColorDefault(s, color.RGBA{A: 255})
		}
		c.surface.FillGradientBackground(stops, scene.BGGradient.Angle)
		return
	}
	if scene.BGColor != "" {
		c.surface.FillBackground(timeline.ParseColorDefault(scene.BGColor, color.RGBA{A: 255}))
		return
	}
	if firstTrack {
		c.surface.FillBackground(color.RGBA{A: 255})
	}
}

func (c *Compositor) paintElement(ctx context.Context, el *timeline.Element, scene *timeline.Scene, sScene float64, trans animation.TransitionState) {
	w := float64(c.cfg.Width)
	h := float64(c.cfg.Height)
	elDuration := el.EffectiveDuration(scene.Duration)

	// Keyframes dominate the preset when both are present.
	var anim animation.State
	var kf animation.KeyframeState
	useKeyframes := len(el.Keyframes) > 0
	if useKeyframes {
		kf = animation.ComputeKeyframeState(el.Keyframes, sScene, el.Start)
		anim = animation.State{Opacity: kf.Opacity, Scale: kf.Scale}
	} else {
		anim = animation.ComputeElementAnimation(el.Animation, sScene, el.Start, elDuration, w, h)
	}

	// Final alpha is base x animation x transition, each exactly once.
	effOpacity := clampUnit(el.BaseOpacity()) * clampUnit(anim.Opacity) * clampUnit(trans.Opacity)
	if effOpacity <= 0 {
		return
	}

	// Keyframe offsets flow through a cloned element so the painter's own
	// position computation sees them; a raw translate would be distorted
	// by the scale applied below.
	drawEl := el
	rotation := el.Rotation
	if useKeyframes {
		clone := *el
		if kf.OffsetXOverride {
			clone.OffsetX = kf.OffsetX
		}
		if kf.OffsetYOverride {
			clone.OffsetY = kf.OffsetY
		}
		if kf.RotationOverride {
			rotation = kf.Rotation
		}
		drawEl = &clone
	}

	elScale := el.BaseScale() * anim.Scale
	if el.Animation != nil && el.Animation.Type == "typewriter" && !useKeyframes {
		// The typewriter preset's scale is a reveal progress for the text
		// painter, not a visual scale.
		elScale = el.BaseScale()
	}

	c.surface.Save()
	defer c.surface.Restore()

	if anim.TX != 0 || anim.TY != 0 || elScale != 1 || rotation != 0 {
		if anim.TX != 0 || anim.TY != 0 {
			c.surface.Translate(anim.TX, anim.TY)
		}
		// Keyframe animations pivot on the element's resolved position so
		// zoom and rotate happen in place; presets keep the canvas center.
		px, py := w/2, h/2
		if useKeyframes {
			ex, ey := paint.ComputePosition(drawEl.Position, w, h, drawEl.Width, drawEl.Height, drawEl.OffsetX, drawEl.OffsetY)
			px, py = ex+drawEl.Width/2, ey+drawEl.Height/2
		}
		if elScale != 1 {
			c.surface.ScaleAbout(elScale, px, py)
		}
		if rotation != 0 {
			c.surface.RotateAbout(rotation*math.Pi/180, px, py)
		}
	}

	if el.Shadow != nil {
		c.surface.SetShadow(&canvas.Shadow{
			Color:   timeline.ParseColorDefault(el.Shadow.Color, color.RGBA{A: 128}),
			Blur:    el.Shadow.Blur,
			OffsetX: el.Shadow.OffsetX,
			OffsetY: el.Shadow.OffsetY,
		})
	}
	if el.Filters != nil {
		c.surface.SetFilters(convertFilters(el.Filters))
	}
	c.surface.SetAlpha(effOpacity)
	c.surface.SetBlendMode(canvas.ParseBlendMode(el.BlendMode))

	painter, ok := c.painters[el.Type]
	if !ok {
		return
	}

	env := &paint.Env{
		Ctx:       ctx,
		CanvasW:   w,
		CanvasH:   h,
		SceneTime: sScene,
		LocalTime: sScene - el.Start,
		Duration:  elDuration,
		FPS:       c.fps,
		Anim:      anim,
		Assets:    c.loader,
		Fonts:     c.fonts,
		Audio:     c.audio,
		Logger:    c.logger,
	}
	if el.Type == timeline.ElementVideo {
		env.Extractor = c.extractors[el.URL]
	}

	layer := c.surface.Layer()
	if err := painter(layer, drawEl, env); err != nil {
		// Recoverable: the element is skipped for this frame only.
		c.logger.Debug("Painter failed, skipping element",
			zap.String("type", string(el.Type)),
			zap.Error(err),
		)
		if c.opts.OnElementSkipped != nil {
			c.opts.OnElementSkipped()
		}
		return
	}
	c.surface.Composite(layer)
}

// paintVignette draws a radial falloff from transparent at the inner
// radius to the vignette color at the outer diagonal.
func (c *Compositor) paintVignette(v *timeline.Vignette) {
	w := float64(c.cfg.Width)
	h := float64(c.cfg.Height)

	col := timeline.ParseColorDefault(v.Color, color.RGBA{A: 255})
	intensity := v.Intensity
	if intensity <= 0 {
		intensity = 0.5
	}
	size := v.Size
	if size <= 0 {
		size = 0.5
	}
	outerAlpha := col.A
	if col.R == 0 && col.G == 0 && col.B == 0 {
		outerAlpha = uint8(clampUnit(intensity) * 255)
	}

	outer := math.Sqrt(w*w+h*h) / 2
	layer := c.surface.Layer()
	dc := layer.DC()
	grad := newRadialGradient(w/2, h/2, outer*size, outer, col, outerAlpha)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()
	c.surface.Composite(layer)
}

func (c *Compositor) paintColorOverlay(ov *timeline.ColorOverlay) {
	c.surface.Save()
	defer c.surface.Restore()
	c.surface.SetBlendMode(canvas.ParseBlendMode(ov.BlendMode))

	layer := c.surface.Layer()
	dc := layer.DC()
	dc.SetColor(timeline.ParseColorDefault(ov.Color, color.RGBA{A: 0}))
	dc.DrawRectangle(0, 0, float64(c.cfg.Width), float64(c.cfg.Height))
	dc.Fill()
	c.surface.Composite(layer)
}

func newRadialGradient(cx, cy, inner, outer float64, col color.RGBA, outerAlpha uint8) gg.Gradient {
	grad := gg.NewRadialGradient(cx, cy, inner, cx, cy, outer)
	grad.AddColorStop(0, color.RGBA{R: col.R, G: col.G, B: col.B, A: 0})
	grad.AddColorStop(1, color.RGBA{R: col.R, G: col.G, B: col.B, A: outerAlpha})
	return grad
}

func convertFilters(f *timeline.Filters) *canvas.Filters {
	out := canvas.NewFilters()
	if f.Blur != nil {
		out.Blur = *f.Blur
	}
	if f.Brightness != nil {
		out.Brightness = *f.Brightness
	}
	if f.Contrast != nil {
		out.Contrast = *f.Contrast
	}
	if f.Grayscale != nil {
		out.Grayscale = *f.Grayscale
	}
	if f.HueRotate != nil {
		out.HueRotate = *f.HueRotate
	}
	if f.Invert != nil {
		out.Invert = *f.Invert
	}
	if f.Saturate != nil {
		out.Saturate = *f.Saturate
	}
	if f.Sepia != nil {
		out.Sepia = *f.Sepia
	}
	return out
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Render walks every frame in order, invoking fn with each frame's
// pixels. It stops on the first error or context cancellation.
func (c *Compositor) Render(ctx context.Context, fn func(index int, rgba []byte) error) error {
	total := c.FrameCount()
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf, err := c.RenderFrame(ctx, i)
		if err != nil {
			return err
		}
		if err := fn(i, buf); err != nil {
			return err
		}
	}
	return nil
}

// Close releases extractor frame directories and all module-level
// painter caches.
func (c *Compositor) Close() error {
	var firstErr error
	for _, e := range c.extractors {
		if err := e.Cleanup(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.audio.Cleanup()
	c.fonts.Cleanup()
	paint.CleanupCaches()
	return firstErr
}
