package middleware

import (
	"net/http"
	"time"

	"github.com/framecast/backend/internal/shared/metrics"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Metrics records HTTP request metrics.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			m.RecordHTTPRequest(r.Method, r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}
