package encode

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildArgs(t *testing.T) {
	t.Run("video only mp4", func(t *testing.T) {
		args := BuildArgs(SessionOptions{
			Width: 1280, Height: 720, FPS: 30, OutputPath: "out.mp4",
		})
		joined := strings.Join(args, " ")
		assert.Contains(t, joined, "-f rawvideo")
		assert.Contains(t, joined, "-pix_fmt rgba")
		assert.Contains(t, joined, "-s 1280x720")
		assert.Contains(t, joined, "-r 30")
		assert.Contains(t, joined, "-i -")
		assert.Contains(t, joined, "libx264")
		assert.Contains(t, joined, "yuv420p")
		assert.Equal(t, "out.mp4", args[len(args)-1])
		assert.NotContains(t, joined, "amix")
	})

	t.Run("single audio input", func(t *testing.T) {
		args := BuildArgs(SessionOptions{
			Width: 640, Height: 360, FPS: 25, OutputPath: "out.mp4",
			Audio: []AudioTrack{{Path: "music.mp3", Start: 1.5, Volume: 0.8}},
		})
		joined := strings.Join(args, " ")
		assert.Contains(t, joined, "music.mp3")
		assert.Contains(t, joined, "adelay=1500")
		assert.Contains(t, joined, "volume=0.80")
		assert.Contains(t, joined, "-map 0:v")
		assert.Contains(t, joined, "aac")
	})

	t.Run("multiple audio inputs mix", func(t *testing.T) {
		args := BuildArgs(SessionOptions{
			Width: 640, Height: 360, FPS: 25, OutputPath: "out.mp4",
			Audio: []AudioTrack{
				{Path: "voice.mp3"},
				{Path: "bgm.mp3", Volume: 0.3},
			},
		})
		joined := strings.Join(args, " ")
		assert.Contains(t, joined, "amix=inputs=2")
	})

	t.Run("webm codecs", func(t *testing.T) {
		args := BuildArgs(SessionOptions{
			Width: 640, Height: 360, FPS: 25, OutputPath: "out.webm", Format: "webm",
		})
		assert.Contains(t, strings.Join(args, " "), "libvpx-vp9")
	})
}

func TestStartValidatesSize(t *testing.T) {
	e := NewEncoder("", zap.NewNop())
	_, err := e.Start(context.Background(), SessionOptions{Width: 0, Height: 100})
	require.Error(t, err)
}

func TestWriteFrameSizeCheck(t *testing.T) {
	s := &Session{opts: SessionOptions{Width: 2, Height: 2}}
	err := s.WriteFrame(make([]byte, 5))
	assert.Error(t, err)
}
