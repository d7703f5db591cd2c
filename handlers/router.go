package handlers

import (
	"net/http"

	"book-review/middleware"

	"github.com/gorilla/mux"
)

type RouterConfig struct {
	CORSOrigins []string
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
	// RateLimiter guards /api/auth/*. Nil disables rate limiting.
	RateLimiter *middleware.RateLimiter
}

// NewRouter wires every route and the middleware chain around them.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Use(middleware.MetricsMiddleware(h.metrics))

	r.HandleFunc("/", h.IndexHandler).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	authRoutes := api.PathPrefix("/auth").Subrouter()
	if cfg.RateLimiter != nil {
		authRoutes.Use(cfg.RateLimiter.Handler)
	}
	authRoutes.HandleFunc("/signup", h.SignupHandler).Methods(http.MethodPost)
	authRoutes.HandleFunc("/login", h.LoginHandler).Methods(http.MethodPost)

	protect := middleware.AuthMiddleware(h.auth)

	api.Handle("/books", protect(http.HandlerFunc(h.CreateBookHandler))).Methods(http.MethodPost)
	api.HandleFunc("/books", h.ListBooksHandler).Methods(http.MethodGet)
	// search must be registered before {id}
	api.HandleFunc("/books/search", h.SearchBooksHandler).Methods(http.MethodGet)
	api.HandleFunc("/books/{id}", h.GetBookHandler).Methods(http.MethodGet)

	api.Handle("/reviews/{bookId}", protect(http.HandlerFunc(h.CreateReviewHandler))).Methods(http.MethodPost)
	api.Handle("/reviews/{id}", protect(http.HandlerFunc(h.UpdateReviewHandler))).Methods(http.MethodPut)
	api.Handle("/reviews/{id}", protect(http.HandlerFunc(h.DeleteReviewHandler))).Methods(http.MethodDelete)

	var handler http.Handler = r
	handler = middleware.CORSMiddleware(cfg.CORSOrigins)(handler)
	handler = middleware.RequestLogger(h.log)(handler)
	handler = middleware.Recoverer(h.log)(handler)
	handler = middleware.ClientIPMiddleware(cfg.TrustProxy)(handler)
	return handler
}
