package assets

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const audioCacheSize = 8

// AudioSampler turns audio files into normalized amplitude windows for
// the waveform painter. Sampled files are kept in a small LRU so repeated
// frames of the same waveform cost one decode.
type AudioSampler struct {
	loader *Loader
	logger *zap.Logger
	cache  *lru.Cache[string, []float64]
}

// NewAudioSampler creates a sampler backed by the given loader.
func NewAudioSampler(loader *Loader, logger *zap.Logger) *AudioSampler {
	cache, _ := lru.New[string, []float64](audioCacheSize)
	return &AudioSampler{loader: loader, logger: logger, cache: cache}
}

// Amplitudes returns buckets mean-absolute amplitude windows in [0,1]
// across the whole file. WAV and MP3 sources are supported.
func (s *AudioSampler) Amplitudes(ctx context.Context, rawURL string, buckets int) ([]float64, error) {
	if buckets <= 0 {
		buckets = 64
	}
	key := fmt.Sprintf("%s#%d", rawURL, buckets)
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	path, err := s.loader.Fetch(ctx, rawURL, KindAudio)
	if err != nil {
		return nil, err
	}

	var samples []float64
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		samples, err = decodeWAV(path)
	default:
		samples, err = decodeMP3(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to sample %q: %w", rawURL, err)
	}

	windows := bucketize(samples, buckets)
	s.cache.Add(key, windows)
	return windows, nil
}

// Cleanup drops all cached amplitude windows.
func (s *AudioSampler) Cleanup() {
	s.cache.Purge()
}

func decodeWAV(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("empty wav stream")
	}

	peak := math.Pow(2, float64(dec.BitDepth-1))
	out := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float64(v) / peak
	}
	return out, nil
}

func decodeMP3(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}

	// The decoder emits 16-bit little-endian stereo PCM.
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		v := int16(uint16(raw[i]) | uint16(raw[i+1])<<8)
		out = append(out, float64(v)/32768)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty mp3 stream")
	}
	return out, nil
}

// bucketize splits samples into count windows of mean absolute amplitude,
// normalized so the loudest window is 1.
func bucketize(samples []float64, count int) []float64 {
	out := make([]float64, count)
	if len(samples) == 0 {
		return out
	}
	window := len(samples) / count
	if window < 1 {
		window = 1
	}
	peak := 0.0
	for i := 0; i < count; i++ {
		start := i * window
		if start >= len(samples) {
			break
		}
		end := start + window
		if end > len(samples) {
			end = len(samples)
		}
		sum := 0.0
		for _, v := range samples[start:end] {
			sum += math.Abs(v)
		}
		out[i] = sum / float64(end-start)
		if out[i] > peak {
			peak = out[i]
		}
	}
	if peak > 0 {
		for i := range out {
			out[i] /= peak
		}
	}
	return out
}
