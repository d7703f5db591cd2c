package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"book-review/models"
	"book-review/services"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Message: message})
}

// errorStatus maps a service error to its HTTP status and the message shown
// to the client.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrDuplicateUser):
		return http.StatusBadRequest, services.ErrDuplicateUser.Error()
	case errors.Is(err, services.ErrAlreadyReviewed):
		return http.StatusBadRequest, services.ErrAlreadyReviewed.Error()
	case errors.Is(err, services.ErrInvalidQuery):
		return http.StatusBadRequest, services.ErrInvalidQuery.Error()
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, services.ErrInvalidCredentials.Error()
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, services.ErrUnauthorized.Error()
	case errors.Is(err, services.ErrNotFoundOrNotOwner):
		return http.StatusNotFound, services.ErrNotFoundOrNotOwner.Error()
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, services.ErrNotFound.Error()
	default:
		return http.StatusInternalServerError, services.ErrInternal.Error()
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "err", err, "path", r.URL.Path)
	}
	writeMessage(w, status, message)
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", services.ErrValidation)
		}
		return fmt.Errorf("%w: malformed JSON body", services.ErrValidation)
	}
	return nil
}
