// Command render is a one-shot offline renderer: it reads a timeline
// JSON file, composites every frame and either encodes an mp4/webm via
// ffmpeg or writes the raw RGBA stream for an external encoder.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/framecast/backend/internal/modules/encode"
	"github.com/framecast/backend/internal/render"
	"github.com/framecast/backend/internal/shared/logging"
	"github.com/framecast/backend/internal/timeline"
	"go.uber.org/zap"
)

const version = "0.1.0"

var CLI struct {
	Timeline string  `arg:"" help:"Timeline JSON file." type:"existingfile"`
	Out      string  `arg:"" help:"Output file (.mp4/.webm, or raw RGBA with --raw; - for stdout)." optional:""`
	FPS      float64 `help:"Output frame rate." default:"30"`
	Raw      bool    `help:"Write raw RGBA frames instead of encoding." short:"r"`
	Ffmpeg   string  `help:"ffmpeg binary path." default:"ffmpeg"`
	CacheDir string  `help:"Asset cache directory." type:"path"`
	LogLevel string  `help:"Log level." default:"info"`
	Version  bool    `help:"Show version information." short:"v"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("render"),
		kong.Description("Render a declarative timeline into a video, offline."),
		kong.UsageOnError(),
	)
	_ = kctx

	if CLI.Version {
		fmt.Printf("render version %s\n", version)
		os.Exit(0)
	}
	if CLI.Out == "" {
		fmt.Fprintln(os.Stderr, "Error: <out> is required")
		os.Exit(1)
	}

	logger, err := logging.NewLogger(CLI.LogLevel, "development")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Error("Render failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	data, err := os.ReadFile(CLI.Timeline)
	if err != nil {
		return err
	}
	cfg, err := timeline.ParseConfig(data)
	if err != nil {
		return err
	}

	comp, err := render.New(cfg, render.Options{
		FPS:           CLI.FPS,
		FFmpegPath:    CLI.Ffmpeg,
		AssetCacheDir: CLI.CacheDir,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer comp.Close()

	ctx := context.Background()
	if err := comp.Preload(ctx); err != nil {
		return err
	}

	total := comp.FrameCount()
	logger.Info("Rendering",
		zap.Int("frames", total),
		zap.Float64("fps", CLI.FPS),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
	)

	if CLI.Raw {
		return renderRaw(ctx, comp)
	}

	var audio []encode.AudioTrack
	for _, in := range comp.AudioTimeline() {
		if in.Path != "" {
			audio = append(audio, encode.AudioTrack{Path: in.Path, Start: in.Start, Volume: in.Volume})
		}
	}

	format := "mp4"
	if len(CLI.Out) > 5 && CLI.Out[len(CLI.Out)-5:] == ".webm" {
		format = "webm"
	}
	session, err := encode.NewEncoder(CLI.Ffmpeg, logger).Start(ctx, encode.SessionOptions{
		Width:      cfg.Width,
		Height:     cfg.Height,
		FPS:        CLI.FPS,
		OutputPath: CLI.Out,
		Format:     format,
		Audio:      audio,
	})
	if err != nil {
		return err
	}

	if err := comp.Render(ctx, func(i int, rgba []byte) error {
		return session.WriteFrame(rgba)
	}); err != nil {
		session.Close()
		return err
	}
	return session.Close()
}

func renderRaw(ctx context.Context, comp *render.Compositor) error {
	var out io.Writer
	if CLI.Out == "-" {
		out = os.Stdout
	} else {
		f, err := os.Create(CLI.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return comp.Render(ctx, func(i int, rgba []byte) error {
		_, err := out.Write(rgba)
		return err
	})
}
