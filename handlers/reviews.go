package handlers

import (
	"net/http"

	"book-review/metrics"
	"book-review/middleware"
	"book-review/models"
	"book-review/services"

	"github.com/gorilla/mux"
)

func (h *Handler) CreateReviewHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		h.writeError(w, r, services.ErrUnauthorized)
		return
	}

	var req models.CreateReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	review, err := h.reviews.CreateReview(r.Context(), caller, mux.Vars(r)["bookId"], req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.metrics.RecordReview(metrics.ReviewCreated)
	writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) UpdateReviewHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		h.writeError(w, r, services.ErrUnauthorized)
		return
	}

	var req models.UpdateReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	review, err := h.reviews.UpdateReview(r.Context(), caller, mux.Vars(r)["id"], req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.metrics.RecordReview(metrics.ReviewUpdated)
	writeJSON(w, http.StatusOK, review)
}

func (h *Handler) DeleteReviewHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		h.writeError(w, r, services.ErrUnauthorized)
		return
	}

	if err := h.reviews.DeleteReview(r.Context(), caller, mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.metrics.RecordReview(metrics.ReviewDeleted)
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Review deleted"})
}
