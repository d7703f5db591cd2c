package middleware

import (
	"net/http"
	"time"

	"book-review/metrics"

	"github.com/gorilla/mux"
)

// MetricsMiddleware records request count and latency labeled by the mux
// route template, so /api/books/{id} is one series. Register it with
// Router.Use so the matched route is known.
func MetricsMiddleware(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			done := m.TrackInFlight()
			defer done()

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			m.ObserveHTTP(r.Method, routeTemplate(r), rec.Status(), time.Since(start))
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
