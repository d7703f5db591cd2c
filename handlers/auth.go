package handlers

import (
	"errors"
	"net/http"

	"book-review/models"
	"book-review/services"
)

func (h *Handler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	userID, err := h.auth.Signup(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.metrics.RecordSignup()
	writeJSON(w, http.StatusOK, models.SignupResponse{Message: "User created", UserID: userID})
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.metrics.RecordLogin(false)
		}
		h.writeError(w, r, err)
		return
	}

	h.metrics.RecordLogin(true)
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token})
}
