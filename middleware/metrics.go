package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Dosada05/bracket-engine/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Metrics records request count, latency and in-flight requests per route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.Method
		metrics.RequestInProgress.WithLabelValues(method).Inc()
		defer metrics.RequestInProgress.WithLabelValues(method).Dec()

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		// Шаблон маршрута известен только после роутинга.
		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)

		metrics.RequestCounter.WithLabelValues(code, method, path).Inc()
		metrics.RequestDuration.WithLabelValues(code, method, path).Observe(time.Since(start).Seconds())
	})
}
