// Package video supplies decoded still frames for video elements. Each
// source is extracted once to an adjacent frame directory by ffmpeg, then
// served through a two-tier LRU: decoded images in front of raw jpeg
// bytes.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // frame files are jpegs
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	// decodedCacheSize bounds the decoded-image tier.
	decodedCacheSize = 90

	// rawCacheSize bounds the raw-bytes tier.
	rawCacheSize = 120

	// extractionTimeout is the watchdog on the ffmpeg subprocess.
	extractionTimeout = 300 * time.Second

	framePrefix = "frame_"
)

// ExtractionTimeoutError reports that frame extraction exceeded the
// watchdog and the subprocess was killed.
type ExtractionTimeoutError struct {
	Path string
}

func (e *ExtractionTimeoutError) Error() string {
	return fmt.Sprintf("video: frame extraction of %s timed out after %s", e.Path, extractionTimeout)
}

// ExtractionExitError reports a non-zero ffmpeg exit.
type ExtractionExitError struct {
	Path   string
	Code   int
	Stderr string
}

func (e *ExtractionExitError) Error() string {
	return fmt.Sprintf("video: frame extraction of %s exited with code %d", e.Path, e.Code)
}

// FrameExtractor extracts one video source to indexed still frames and
// serves them. All mutation happens on the compositor's single render
// loop; no locking is required.
type FrameExtractor struct {
	videoPath  string
	targetFPS  float64
	ffmpegPath string
	logger     *zap.Logger

	framesDir   string
	totalFrames int
	extracted   bool

	decoded *lru.Cache[int, image.Image]
	raw     *lru.Cache[int, []byte]
}

// NewFrameExtractor creates an extractor for one video source. Frames are
// written to a sibling directory of the source file.
func NewFrameExtractor(videoPath string, targetFPS float64, ffmpegPath string, logger *zap.Logger) *FrameExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	decoded, _ := lru.New[int, image.Image](decodedCacheSize)
	raw, _ := lru.New[int, []byte](rawCacheSize)
	return &FrameExtractor{
		videoPath:  videoPath,
		targetFPS:  targetFPS,
		ffmpegPath: ffmpegPath,
		logger:     logger,
		framesDir:  filepath.Join(filepath.Dir(videoPath), "frames_"+base),
		decoded:    decoded,
		raw:        raw,
	}
}

// ExtractFrames runs ffmpeg once to decompose the source into numbered
// jpegs at the target fps. Subsequent calls are no-ops.
func (e *FrameExtractor) ExtractFrames(ctx context.Context) error {
	if e.extracted {
		return nil
	}

	if err := os.MkdirAll(e.framesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create frames dir: %w", err)
	}

	args := []string{
		"-y",
		"-i", e.videoPath,
		"-vf", fmt.Sprintf("fps=%g", e.targetFPS),
		"-q:v", "2",
		filepath.Join(e.framesDir, "frame_%06d.jpg"),
	}

	e.logger.Info("Extracting video frames",
		zap.String("video", e.videoPath),
		zap.Float64("fps", e.targetFPS),
		zap.String("dir", e.framesDir),
	)

	cctx, cancel := context.WithTimeout(ctx, extractionTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return &ExtractionTimeoutError{Path: e.videoPath}
		}
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &ExtractionExitError{Path: e.videoPath, Code: code, Stderr: stderr.String()}
	}

	total, err := e.countFrames()
	if err != nil {
		return err
	}
	e.totalFrames = total
	e.extracted = true

	e.logger.Info("Frame extraction complete",
		zap.String("video", e.videoPath),
		zap.Int("frames", total),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (e *FrameExtractor) countFrames() (int, error) {
	entries, err := os.ReadDir(e.framesDir)
	if err != nil {
		return 0, fmt.Errorf("failed to list frames dir: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), framePrefix) {
			count++
		}
	}
	return count, nil
}

// TotalFrames returns the number of extracted frames.
func (e *FrameExtractor) TotalFrames() int { return e.totalFrames }

// FrameImage returns the decoded frame at the 1-indexed position, clamped
// to [1, totalFrames]. Unreadable or undecodable frames return nil and
// the painter skips them.
func (e *FrameExtractor) FrameImage(idx int) image.Image {
	if e.totalFrames == 0 {
		return nil
	}
	if idx < 1 {
		idx = 1
	} else if idx > e.totalFrames {
		idx = e.totalFrames
	}

	if img, ok := e.decoded.Get(idx); ok {
		return img
	}

	data, ok := e.raw.Get(idx)
	if !ok {
		var err error
		data, err = os.ReadFile(e.framePath(idx))
		if err != nil {
			e.logger.Warn("Failed to read frame file",
				zap.String("video", e.videoPath),
				zap.Int("frame", idx),
				zap.Error(err),
			)
			return nil
		}
		e.raw.Add(idx, data)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		e.logger.Warn("Failed to decode frame",
			zap.String("video", e.videoPath),
			zap.Int("frame", idx),
			zap.Error(err),
		)
		return nil
	}
	e.decoded.Add(idx, img)
	return img
}

func (e *FrameExtractor) framePath(idx int) string {
	return filepath.Join(e.framesDir, fmt.Sprintf("frame_%06d.jpg", idx))
}

// Cleanup clears both cache tiers and removes the frames directory.
func (e *FrameExtractor) Cleanup() error {
	e.decoded.Purge()
	e.raw.Purge()
	e.extracted = false
	e.totalFrames = 0
	return os.RemoveAll(e.framesDir)
}
