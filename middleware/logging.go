package middleware

import (
	"net/http"
	"time"

	"book-review/logging"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger assigns every request an id (the inbound X-Request-ID when
// present), stores it in the context and logs the request once it completes.
func RequestLogger(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.NewString()
			}
			ctx := logging.WithRequestID(r.Context(), requestID)
			w.Header().Set(RequestIDHeader, requestID)

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.Status()
			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", ClientIP(r),
			}
			switch {
			case status >= http.StatusInternalServerError:
				log.Error(ctx, "request completed", args...)
			case status >= http.StatusBadRequest:
				log.Warn(ctx, "request completed", args...)
			default:
				log.Info(ctx, "request completed", args...)
			}
		})
	}
}
