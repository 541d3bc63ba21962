// Package encode packages the compositor's raw RGBA frame stream into a
// finished video by piping it through ffmpeg, optionally mixing in the
// timeline's audio attachments.
package encode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Encoder spawns ffmpeg encode sessions.
type Encoder struct {
	ffmpegPath string
	logger     *zap.Logger
}

// NewEncoder creates an encoder. An empty path resolves ffmpeg from PATH.
func NewEncoder(ffmpegPath string, logger *zap.Logger) *Encoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Encoder{ffmpegPath: ffmpegPath, logger: logger}
}

// AudioTrack is one audio input mixed into the output.
type AudioTrack struct {
	Path   string
	Start  float64 // seconds into the output
	Volume float64 // 1 = unchanged
}

// SessionOptions describes one encode run.
type SessionOptions struct {
	Width      int
	Height     int
	FPS        float64
	OutputPath string
	Format     string // mp4 (default) or webm
	Audio      []AudioTrack
}

// Session is a running ffmpeg process consuming raw frames on stdin.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	opts   SessionOptions
	logger *zap.Logger
	frames int
}

// BuildArgs constructs the ffmpeg argument list for an encode session.
// Exposed for tests; Start consumes it.
func BuildArgs(opts SessionOptions) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-r", fmt.Sprintf("%g", opts.FPS),
		"-i", "-",
	}

	for _, a := range opts.Audio {
		args = append(args, "-i", a.Path)
	}

	if len(opts.Audio) > 0 {
		var parts []string
		var labels []string
		for i, a := range opts.Audio {
			volume := a.Volume
			if volume <= 0 {
				volume = 1
			}
			label := fmt.Sprintf("[a%d]", i)
			parts = append(parts, fmt.Sprintf("[%d:a]adelay=%d:all=1,volume=%.2f%s",
				i+1, int(a.Start*1000), volume, label))
			labels = append(labels, label)
		}
		if len(opts.Audio) == 1 {
			parts = append(parts, fmt.Sprintf("%sanull[aout]", labels[0]))
		} else {
			parts = append(parts, fmt.Sprintf("%samix=inputs=%d:duration=longest[aout]",
				strings.Join(labels, ""), len(opts.Audio)))
		}
		args = append(args, "-filter_complex", strings.Join(parts, ";"))
		args = append(args, "-map", "0:v", "-map", "[aout]")
	}

	switch opts.Format {
	case "webm":
		args = append(args, "-c:v", "libvpx-vp9", "-cpu-used", "4", "-row-mt", "1")
		if len(opts.Audio) > 0 {
			args = append(args, "-c:a", "libopus")
		}
	default:
		args = append(args, "-c:v", "libx264", "-preset", "veryfast", "-crf", "23", "-pix_fmt", "yuv420p")
		if len(opts.Audio) > 0 {
			args = append(args, "-c:a", "aac", "-b:a", "192k")
		}
	}
	args = append(args, "-shortest", opts.OutputPath)
	return args
}

// Start launches the ffmpeg session.
func (e *Encoder) Start(ctx context.Context, opts SessionOptions) (*Session, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("encode: invalid frame size %dx%d", opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}

	args := BuildArgs(opts)
	e.logger.Info("Starting encode session",
		zap.String("output", opts.OutputPath),
		zap.Strings("args", args),
	)

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &Session{cmd: cmd, stdin: stdin, stderr: &stderr, opts: opts, logger: e.logger}, nil
}

// WriteFrame feeds one raw RGBA frame to the encoder. The buffer must be
// exactly width*height*4 bytes.
func (s *Session) WriteFrame(rgba []byte) error {
	expect := s.opts.Width * s.opts.Height * 4
	if len(rgba) != expect {
		return fmt.Errorf("encode: frame size %d, want %d", len(rgba), expect)
	}
	if _, err := s.stdin.Write(rgba); err != nil {
		return fmt.Errorf("encode: frame write failed: %w", err)
	}
	s.frames++
	return nil
}

// Frames returns how many frames were written so far.
func (s *Session) Frames() int { return s.frames }

// Close finishes the stream and waits for ffmpeg to exit.
func (s *Session) Close() error {
	if err := s.stdin.Close(); err != nil {
		return err
	}
	if err := s.cmd.Wait(); err != nil {
		s.logger.Error("Encode session failed",
			zap.String("output", s.opts.OutputPath),
			zap.String("stderr", s.stderr.String()),
			zap.Error(err),
		)
		return fmt.Errorf("encode: ffmpeg failed: %w", err)
	}
	s.logger.Info("Encode session complete",
		zap.String("output", s.opts.OutputPath),
		zap.Int("frames", s.frames),
	)
	return nil
}
