package video

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeFrames fakes a completed extraction by writing n solid-color jpegs
// into the extractor's frame directory.
func writeFrames(t *testing.T, e *FrameExtractor, n int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(e.framesDir, 0o755))
	for i := 1; i <= n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 8, 8))
		shade := uint8(i * 20)
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				img.SetRGBA(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 255})
			}
		}
		f, err := os.Create(e.framePath(i))
		require.NoError(t, err)
		require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 95}))
		require.NoError(t, f.Close())
	}
	e.totalFrames = n
	e.extracted = true
}

func newTestExtractor(t *testing.T) *FrameExtractor {
	t.Helper()
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(videoPath, []byte("stub"), 0o644))
	return NewFrameExtractor(videoPath, 30, "ffmpeg", zap.NewNop())
}

func TestFramesDirNaming(t *testing.T) {
	e := newTestExtractor(t)
	assert.Equal(t, "frames_clip", filepath.Base(e.framesDir))
	assert.Equal(t, filepath.Dir(e.videoPath), filepath.Dir(e.framesDir))
}

func TestFrameImageClamping(t *testing.T) {
	e := newTestExtractor(t)
	writeFrames(t, e, 5)

	require.NotNil(t, e.FrameImage(1))
	require.NotNil(t, e.FrameImage(5))

	// Out-of-range indices clamp instead of failing.
	low := e.FrameImage(0)
	first := e.FrameImage(1)
	require.NotNil(t, low)
	assert.Equal(t, firstPixel(first), firstPixel(low))

	high := e.FrameImage(99)
	last := e.FrameImage(5)
	assert.Equal(t, firstPixel(last), firstPixel(high))
}

func TestFrameImageNoFrames(t *testing.T) {
	e := newTestExtractor(t)
	assert.Nil(t, e.FrameImage(1))
}

func TestFrameImageCaching(t *testing.T) {
	e := newTestExtractor(t)
	writeFrames(t, e, 3)

	img := e.FrameImage(2)
	require.NotNil(t, img)

	// Delete the backing file: cached tiers must still serve the frame.
	require.NoError(t, os.Remove(e.framePath(2)))
	again := e.FrameImage(2)
	require.NotNil(t, again)
	assert.Equal(t, firstPixel(img), firstPixel(again))

	// An uncached missing frame returns nil.
	require.NoError(t, os.Remove(e.framePath(3)))
	assert.Nil(t, e.FrameImage(3))
}

func TestCacheEvictionBounded(t *testing.T) {
	e := newTestExtractor(t)
	writeFrames(t, e, 150)

	for i := 1; i <= 150; i++ {
		require.NotNil(t, e.FrameImage(i))
	}
	assert.LessOrEqual(t, e.decoded.Len(), decodedCacheSize)
	assert.LessOrEqual(t, e.raw.Len(), rawCacheSize)
}

func TestCleanup(t *testing.T) {
	e := newTestExtractor(t)
	writeFrames(t, e, 2)
	require.NotNil(t, e.FrameImage(1))

	require.NoError(t, e.Cleanup())
	assert.Equal(t, 0, e.TotalFrames())
	assert.Equal(t, 0, e.decoded.Len())
	_, err := os.Stat(e.framesDir)
	assert.True(t, os.IsNotExist(err))
}

func TestCorruptFrameReturnsNil(t *testing.T) {
	e := newTestExtractor(t)
	writeFrames(t, e, 2)
	require.NoError(t, os.WriteFile(e.framePath(2), []byte("not a jpeg"), 0o644))

	assert.Nil(t, e.FrameImage(2))
	require.NotNil(t, e.FrameImage(1))
}

func TestExtractionErrors(t *testing.T) {
	err := &ExtractionTimeoutError{Path: "a.mp4"}
	assert.Contains(t, err.Error(), "timed out")

	exit := &ExtractionExitError{Path: "a.mp4", Code: 1}
	assert.Contains(t, exit.Error(), "code 1")
}

func firstPixel(img image.Image) color.Color {
	return img.At(img.Bounds().Min.X, img.Bounds().Min.Y)
}

func TestExtractFramesIdempotent(t *testing.T) {
	e := newTestExtractor(t)
	writeFrames(t, e, 1)
	// Already extracted: no subprocess is launched.
	require.NoError(t, e.ExtractFrames(context.Background()))
	assert.Equal(t, 1, e.TotalFrames())
}
