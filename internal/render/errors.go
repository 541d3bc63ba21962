package render

import (
	"fmt"
	"strings"
)

// AssetFailure records one asset that could not be acquired during
// preload.
type AssetFailure struct {
	URL string
	Err error
}

// PreloadError aggregates every preload failure; it is surfaced once and
// is fatal to the job.
type PreloadError struct {
	Failed []AssetFailure
}

func (e *PreloadError) Error() string {
	urls := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		urls[i] = f.URL
	}
	return fmt.Sprintf("render: preload failed for %d asset(s): %s",
		len(e.Failed), strings.Join(urls, ", "))
}
