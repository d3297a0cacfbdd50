package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"shortforge-backend/internal/middleware"
	"shortforge-backend/internal/models"
	"shortforge-backend/internal/repository"
	"shortforge-backend/internal/services"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return errorRespWithFields(code, message, nil, r)
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: middleware.GetRequestID(r.Context()),
		},
	}
}

// validationFields turns validator errors into json-field -> message pairs.
func validationFields(err error) map[string]string {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["body"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[name] = "is required"
		case "max":
			fields[name] = "must be at most " + fe.Param() + " characters"
		default:
			fields[name] = "is invalid"
		}
	}
	return fields
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr  *services.ValidationError
		uerr  *services.UnauthorizedError
		fberr *services.ForbiddenError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", verr.Fields, r))
	case errors.As(err, &uerr):
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", uerr.Message, r))
	case errors.As(err, &fberr):
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", fberr.Message, r))
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Resource not found", r))
	case errors.Is(err, repository.ErrDuplicate):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Resource already exists", r))
	case errors.Is(err, repository.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Resource is not in a state that allows this action", r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
