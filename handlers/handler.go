// Package handlers is the HTTP surface of the book review API.
package handlers

import (
	"context"

	"book-review/logging"
	"book-review/metrics"
	"book-review/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Auth    *services.AuthService
	Books   *services.BookService
	Reviews *services.ReviewService
	Store   Pinger
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

type Handler struct {
	auth    *services.AuthService
	books   *services.BookService
	reviews *services.ReviewService
	store   Pinger
	log     logging.Logger
	metrics *metrics.Metrics
}

func NewHandler(d Dependencies) *Handler {
	log := d.Logger
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{
		auth:    d.Auth,
		books:   d.Books,
		reviews: d.Reviews,
		store:   d.Store,
		log:     log,
		metrics: d.Metrics,
	}
}
