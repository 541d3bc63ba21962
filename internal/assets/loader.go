// Package assets provides the compositor's external collaborators: the
// download cache for remote media, the process-wide font registry backed
// by the web font service, and the audio amplitude sampler used by the
// waveform painter.
package assets

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Kind tags what an asset is used for; it only picks the fallback file
// extension for cache entries.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindSvg   Kind = "svg"
	KindAudio Kind = "audio"
	KindFont  Kind = "font"
)

var kindExt = map[Kind]string{
	KindImage: ".png",
	KindVideo: ".mp4",
	KindSvg:   ".svg",
	KindAudio: ".mp3",
	KindFont:  ".ttf",
}

// Loader downloads remote assets into an on-disk cache keyed by URL.
// The cache directory may be shared across compositor instances; entries
// are idempotent by filename.
type Loader struct {
	dir    string
	client *http.Client
	logger *zap.Logger
}

// NewLoader creates a loader rooted at dir, creating it if needed.
func NewLoader(dir string, logger *zap.Logger) (*Loader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create asset cache dir: %w", err)
	}
	return &Loader{
		dir:    dir,
		client: &http.Client{Timeout: 120 * time.Second},
		logger: logger,
	}, nil
}

// CachePath returns the deterministic on-disk location for a URL.
func (l *Loader) CachePath(rawURL string, kind Kind) string {
	sum := sha1.Sum([]byte(rawURL))
	ext := strings.ToLower(filepath.Ext(urlPath(rawURL)))
	if ext == "" || len(ext) > 5 {
		ext = kindExt[kind]
	}
	return filepath.Join(l.dir, hex.EncodeToString(sum[:])+ext)
}

// Fetch resolves a URL to a local file path, downloading on first use.
// Plain file paths pass through untouched. After a successful preload,
// Fetch is a cache hit and performs no I/O beyond a stat.
func (l *Loader) Fetch(ctx context.Context, rawURL string, kind Kind) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("empty asset url")
	}
	if !strings.Contains(rawURL, "://") {
		if _, err := os.Stat(rawURL); err != nil {
			return "", fmt.Errorf("local asset not found: %w", err)
		}
		return rawURL, nil
	}

	dest := l.CachePath(rawURL, kind)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid asset url %q: %w", rawURL, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %q: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %q: status %d", rawURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(l.dir, "dl-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %q: %w", rawURL, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to finalize %q: %w", rawURL, err)
	}

	l.logger.Debug("Asset downloaded",
		zap.String("url", rawURL),
		zap.String("path", dest),
	)
	return dest, nil
}

// Dir returns the cache directory.
func (l *Loader) Dir() string { return l.dir }

func urlPath(rawURL string) string {
	s := rawURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return s
}
