package providers

import (
	"net/http"
	"time"
)

// slowRequestThreshold marks requests worth a warn entry. Feed endpoints
// that block on upstream Hive calls are the usual suspects.
const slowRequestThreshold = 2 * time.Second

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func MetricsMiddleware(metrics MetricsProviderInterface, logger Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		endpoint := r.URL.Path
		metrics.IncRequestsTotal(endpoint, sw.status)
		metrics.ObserveRequestDuration(endpoint, duration)

		if duration >= slowRequestThreshold {
			logger.Warnf(TypeApp, "Slow request: %s %s took %s", r.Method, endpoint, duration)
		}
	})
}
