package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"shortforge-backend/internal/models"
)

type adminLogin interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error)
}

type AuthHandler struct {
	auth adminLogin
}

func NewAuthHandler(auth adminLogin) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	tokens, err := h.auth.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}
