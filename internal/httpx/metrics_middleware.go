package httpx

import (
	"net/http"
	"time"

	"github.com/pawsen/library-org/internal/metrics"
)

// MetricsMiddleware records request count and latency by route pattern. It
// must wrap the ServeMux directly so the matched pattern is visible on r.
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrapWriter(w)

			next.ServeHTTP(rw, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTP(r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}
