package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"book-review/middleware"
	"book-review/models"
	"book-review/services"

	"github.com/gorilla/mux"
)

func (h *Handler) CreateBookHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		h.writeError(w, r, services.ErrUnauthorized)
		return
	}

	var req models.CreateBookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	book, err := h.books.CreateBook(r.Context(), caller, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.metrics.RecordBookCreated()
	writeJSON(w, http.StatusCreated, book)
}

func (h *Handler) ListBooksHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := positiveIntParam(q.Get("page"), "page")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := positiveIntParam(q.Get("limit"), "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	books, err := h.books.ListBooks(r.Context(), services.ListBooksParams{
		Page:   page,
		Limit:  limit,
		Author: q.Get("author"),
		Genre:  q.Get("genre"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *Handler) SearchBooksHandler(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.SearchBooks(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *Handler) GetBookHandler(w http.ResponseWriter, r *http.Request) {
	detail, err := h.books.GetBookDetail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// positiveIntParam parses an optional query parameter. An absent value is
// returned as 0 so the service applies its default.
func positiveIntParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", services.ErrValidation, name)
	}
	return v, nil
}
