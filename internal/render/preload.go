package render

import (
	"context"
	"sort"
	"sync"

	"github.com/framecast/backend/internal/assets"
	"github.com/framecast/backend/internal/timeline"
	"github.com/framecast/backend/internal/video"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// downloadConcurrency bounds parallel asset acquisition during preload.
const downloadConcurrency = 8

type assetRef struct {
	url  string
	kind assets.Kind
}

// Preload walks the timeline once, downloads every referenced asset in
// parallel, registers non-system fonts, extracts video frames and
// pre-computes the sorted render order. Download failures are collected
// and reported together as one PreloadError; extraction failures are
// fatal immediately.
func (c *Compositor) Preload(ctx context.Context) error {
	refs, families := c.collectAssets()

	var (
		mu       sync.Mutex
		failures []AssetFailure
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(downloadConcurrency)

	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			if _, err := c.loader.Fetch(gctx, ref.url, ref.kind); err != nil {
				mu.Lock()
				failures = append(failures, AssetFailure{URL: ref.url, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	for family, weight := range families {
		family, weight := family, weight
		g.Go(func() error {
			if err := c.fonts.EnsureFamily(gctx, family, weight); err != nil {
				mu.Lock()
				failures = append(failures, AssetFailure{URL: "font:" + family, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	if len(failures) > 0 {
		return &PreloadError{Failed: failures}
	}

	// Frame extraction runs sequentially: each ffmpeg invocation already
	// saturates the CPU.
	for _, ref := range refs {
		if ref.kind != assets.KindVideo {
			continue
		}
		if _, ok := c.extractors[ref.url]; ok {
			continue
		}
		path, err := c.loader.Fetch(ctx, ref.url, assets.KindVideo)
		if err != nil {
			return &PreloadError{Failed: []AssetFailure{{URL: ref.url, Err: err}}}
		}
		extractor := video.NewFrameExtractor(path, c.fps, c.opts.FFmpegPath, c.logger)
		if err := extractor.ExtractFrames(ctx); err != nil {
			return err
		}
		c.extractors[ref.url] = extractor
	}

	c.computeRenderOrder()
	c.preloaded = true

	c.logger.Info("Preload complete",
		zap.Int("assets", len(refs)),
		zap.Int("fonts", len(families)),
		zap.Int("videos", len(c.extractors)),
		zap.Int("frames", c.FrameCount()),
	)
	return nil
}

// collectAssets gathers unique asset references and the non-system font
// families used by text and caption elements.
func (c *Compositor) collectAssets() ([]assetRef, map[string]string) {
	seen := make(map[string]struct{})
	var refs []assetRef
	add := func(url string, kind assets.Kind) {
		if url == "" {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		refs = append(refs, assetRef{url: url, kind: kind})
	}

	families := make(map[string]string)

	for ti := range c.cfg.Tracks {
		track := &c.cfg.Tracks[ti]
		for si := range track.Scenes {
			scene := &track.Scenes[si]
			if scene.Audio != nil {
				add(scene.Audio.URL, assets.KindAudio)
			}
			for ei := range scene.Elements {
				el := &scene.Elements[ei]
				switch el.Type {
				case timeline.ElementImage:
					add(el.URL, assets.KindImage)
				case timeline.ElementVideo:
					add(el.URL, assets.KindVideo)
				case timeline.ElementSvg:
					add(el.URL, assets.KindSvg)
				case timeline.ElementWaveform:
					add(el.AudioURL, assets.KindAudio)
				case timeline.ElementText, timeline.ElementCaption:
					if el.FontFamily != "" && !assets.IsSystemFont(el.FontFamily) {
						families[el.FontFamily] = el.FontWeight
					}
				}
			}
		}
	}
	return refs, families
}

// computeRenderOrder caches the sorted video tracks, per-scene element
// z-order and per-track cumulative scene starts.
func (c *Compositor) computeRenderOrder() {
	c.videoTracks = c.videoTracks[:0]
	c.sceneStarts = make(map[*timeline.Track][]float64)
	c.elemOrder = make(map[*timeline.Scene][]*timeline.Element)

	for ti := range c.cfg.Tracks {
		track := &c.cfg.Tracks[ti]
		if track.Type != timeline.TrackVideo {
			continue
		}
		c.videoTracks = append(c.videoTracks, track)

		starts := make([]float64, len(track.Scenes))
		at := 0.0
		for si := range track.Scenes {
			starts[si] = at
			at += track.Scenes[si].Duration

			scene := &track.Scenes[si]
			order := make([]*timeline.Element, len(scene.Elements))
			for ei := range scene.Elements {
				order[ei] = &scene.Elements[ei]
			}
			sort.SliceStable(order, func(a, b int) bool { return order[a].ZIndex < order[b].ZIndex })
			c.elemOrder[scene] = order
		}
		c.sceneStarts[track] = starts
	}

	sort.SliceStable(c.videoTracks, func(a, b int) bool {
		return c.videoTracks[a].ZIndex < c.videoTracks[b].ZIndex
	})
}
