package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIsSystemFont(t *testing.T) {
	assert.True(t, IsSystemFont("arial"))
	assert.True(t, IsSystemFont("Arial"))
	assert.True(t, IsSystemFont(" Times New Roman "))
	assert.True(t, IsSystemFont("sans-serif"))
	assert.False(t, IsSystemFont("Roboto"))
	assert.False(t, IsSystemFont(""))
}

func TestLoaderLocalPathPassthrough(t *testing.T) {
	dir := t.TempDir()
	loader, err := NewLoader(dir, zap.NewNop())
	require.NoError(t, err)

	local := filepath.Join(dir, "pic.png")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o644))

	got, err := loader.Fetch(context.Background(), local, KindImage)
	require.NoError(t, err)
	assert.Equal(t, local, got)

	_, err = loader.Fetch(context.Background(), filepath.Join(dir, "missing.png"), KindImage)
	assert.Error(t, err)
}

func TestLoaderDownloadAndCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	loader, err := NewLoader(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	url := srv.URL + "/asset.jpg"
	p1, err := loader.Fetch(context.Background(), url, KindImage)
	require.NoError(t, err)
	data, err := os.ReadFile(p1)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// Second fetch is served from disk.
	p2, err := loader.Fetch(context.Background(), url, KindImage)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Equal(t, 1, hits)
}

func TestCachePathStable(t *testing.T) {
	loader, err := NewLoader(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	a := loader.CachePath("https://example.com/a.png", KindImage)
	b := loader.CachePath("https://example.com/a.png", KindImage)
	c := loader.CachePath("https://example.com/b.png", KindImage)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, ".png", filepath.Ext(a))

	// Extension falls back by kind when the URL has none.
	d := loader.CachePath("https://example.com/stream?id=9", KindAudio)
	assert.Equal(t, ".mp3", filepath.Ext(d))
}

func TestFontRegistryFallbackFace(t *testing.T) {
	loader, err := NewLoader(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	reg, err := NewFontRegistry(loader, zap.NewNop())
	require.NoError(t, err)

	face := reg.Face("Unknown Family", "bold", 24)
	require.NotNil(t, face)

	// Faces are cached per family/weight/size.
	again := reg.Face("Unknown Family", "bold", 24)
	assert.Equal(t, face, again)

	// System families never require EnsureFamily work.
	require.NoError(t, reg.EnsureFamily(context.Background(), "arial", ""))
}

func TestBucketize(t *testing.T) {
	samples := make([]float64, 100)
	for i := range samples {
		if i < 50 {
			samples[i] = 1
		} else {
			samples[i] = 0.5
		}
	}
	out := bucketize(samples, 4)
	require.Len(t, out, 4)
	assert.InDelta(t, 1, out[0], 1e-9)
	assert.InDelta(t, 0.5, out[3], 1e-9)

	// Empty input yields silent windows.
	assert.Equal(t, make([]float64, 3), bucketize(nil, 3))
}
