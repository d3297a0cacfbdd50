package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"shortforge-backend/internal/models"
)

type ideaRepo interface {
	Create(ctx context.Context, text string) (*models.Idea, error)
	GetByID(ctx context.Context, id int64) (*models.Idea, error)
	List(ctx context.Context, status string, limit int) ([]models.Idea, error)
	Requeue(ctx context.Context, id int64) (*models.Idea, error)
}

var ideaStatuses = map[string]bool{
	models.IdeaPending:    true,
	models.IdeaProcessing: true,
	models.IdeaCompleted:  true,
	models.IdeaFailed:     true,
}

type IdeaHandler struct {
	ideas ideaRepo
	log   logrus.FieldLogger
}

func NewIdeaHandler(ideas ideaRepo, log logrus.FieldLogger) *IdeaHandler {
	return &IdeaHandler{ideas: ideas, log: log}
}

// Create queues a new idea for the pipeline.
func (h *IdeaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateIdeaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validationFields(err), r))
		return
	}

	idea, err := h.ideas.Create(r.Context(), req.Text)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.log.WithField("idea_id", idea.ID).Info("Idea queued")
	writeJSON(w, http.StatusCreated, idea)
}

func (h *IdeaHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !ideaStatuses[status] {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"status": "must be one of pending, processing, completed, failed"}, r))
		return
	}

	ideas, err := h.ideas.List(r.Context(), status, limitParam(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if ideas == nil {
		ideas = []models.Idea{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ideas": ideas})
}

func (h *IdeaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid idea ID", r))
		return
	}

	idea, err := h.ideas.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, idea)
}

// Requeue moves a failed idea back to pending so the next tick retries it.
func (h *IdeaHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid idea ID", r))
		return
	}

	idea, err := h.ideas.Requeue(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.log.WithField("idea_id", id).Info("Idea requeued")
	writeJSON(w, http.StatusOK, idea)
}
