package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/voicegate/observability"
)

// Metrics records request count, latency and in-flight requests. A nil
// metrics set makes it a pass-through.
func Metrics(m *observability.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if probePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			m.RecordRequestStart(ctx)
			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			m.RecordRequestEnd(ctx, r.Method, r.URL.Path, sw.status, time.Since(start))
		})
	}
}
