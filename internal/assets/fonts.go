package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// systemFonts are the families assumed present without a download,
// matched case-insensitively.
var systemFonts = map[string]struct{}{
	"arial": {}, "helvetica": {}, "times new roman": {}, "times": {},
	"courier": {}, "courier new": {}, "verdana": {}, "georgia": {},
	"palatino": {}, "garamond": {}, "comic sans ms": {}, "impact": {},
	"lucida console": {}, "tahoma": {}, "trebuchet ms": {},
	"sans-serif": {}, "serif": {}, "monospace": {}, "cursive": {}, "fantasy": {},
}

// IsSystemFont reports whether a family is in the embedded system set.
func IsSystemFont(family string) bool {
	_, ok := systemFonts[strings.ToLower(strings.TrimSpace(family))]
	return ok
}

var fontURLPattern = regexp.MustCompile(`url\((https://[^)]+\.(?:ttf|otf))\)`)

type faceKey struct {
	family string
	weight string
	size   float64
}

// FontRegistry resolves font families to faces. It is process-wide and
// effectively write-once: families are registered during preload and only
// read during rendering. Unknown families fall back to the embedded
// default face so text always renders.
type FontRegistry struct {
	mu     sync.Mutex
	loader *Loader
	logger *zap.Logger
	client *http.Client

	fonts    map[string]*sfnt.Font
	faces    map[faceKey]font.Face
	fallback *sfnt.Font
}

// NewFontRegistry creates a registry with the embedded fallback face
// parsed eagerly.
func NewFontRegistry(loader *Loader, logger *zap.Logger) (*FontRegistry, error) {
	fallback, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded fallback font: %w", err)
	}
	return &FontRegistry{
		loader:   loader,
		logger:   logger,
		client:   &http.Client{},
		fonts:    make(map[string]*sfnt.Font),
		faces:    make(map[faceKey]font.Face),
		fallback: fallback,
	}, nil
}

// Register parses and stores TTF/OTF bytes under a family and weight.
func (r *FontRegistry) Register(family, weight string, ttf []byte) error {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return fmt.Errorf("failed to parse font %q: %w", family, err)
	}
	r.mu.Lock()
	r.fonts[fontKey(family, weight)] = f
	r.mu.Unlock()
	return nil
}

// Registered reports whether the family is registered under the given
// weight (an empty or unknown weight means 400). Other weights of the same
// family do not count.
func (r *FontRegistry) Registered(family, weight string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.fonts[fontKey(family, weight)]
	return ok
}

// EnsureFamily makes a family available, downloading it from the web font
// service when it is neither a system family nor already registered.
func (r *FontRegistry) EnsureFamily(ctx context.Context, family, weight string) error {
	if family == "" || IsSystemFont(family) || r.Registered(family, weight) {
		return nil
	}

	cssURL := fmt.Sprintf("https://fonts.googleapis.com/css2?family=%s:wght@%s",
		url.QueryEscape(family), weightValue(weight))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cssURL, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("font service request for %q failed: %w", family, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("font service returned status %d for %q", resp.StatusCode, family)
	}

	css, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	m := fontURLPattern.FindSubmatch(css)
	if m == nil {
		return fmt.Errorf("no downloadable font found for %q", family)
	}

	path, err := r.loader.Fetch(ctx, string(m[1]), KindFont)
	if err != nil {
		return fmt.Errorf("failed to download font %q: %w", family, err)
	}
	ttf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := r.Register(family, weight, ttf); err != nil {
		return err
	}

	r.logger.Info("Web font registered",
		zap.String("family", family),
		zap.String("weight", weight),
	)
	return nil
}

// Face returns a sized face for the family, falling back to the embedded
// default when the family is unknown. It never fails; a text element
// always has something to render with.
func (r *FontRegistry) Face(family, weight string, size float64) font.Face {
	if size <= 0 {
		size = 16
	}
	key := faceKey{family: fontKey(family, weight), weight: weight, size: size}

	r.mu.Lock()
	defer r.mu.Unlock()
	if face, ok := r.faces[key]; ok {
		return face
	}

	src := r.fonts[key.family]
	if src == nil {
		src = r.fallback
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		r.logger.Warn("Failed to build font face, using fallback",
			zap.String("family", family),
			zap.Error(err),
		)
		face, _ = opentype.NewFace(r.fallback, &opentype.FaceOptions{Size: size, DPI: 72})
	}
	r.faces[key] = face
	return face
}

// Cleanup drops all cached faces and downloaded families.
func (r *FontRegistry) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fonts = make(map[string]*sfnt.Font)
	r.faces = make(map[faceKey]font.Face)
}

func fontKey(family, weight string) string {
	return strings.ToLower(strings.TrimSpace(family)) + "|" + weightValue(weight)
}

func weightValue(weight string) string {
	switch strings.ToLower(strings.TrimSpace(weight)) {
	case "", "normal", "regular", "400":
		return "400"
	case "bold", "700":
		return "700"
	case "100", "200", "300", "500", "600", "800", "900":
		return strings.TrimSpace(weight)
	default:
		return "400"
	}
}
