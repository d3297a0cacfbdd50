package handlers

import (
	"context"
	"net/http"

	"shortforge-backend/internal/models"
)

type projectReader interface {
	GetByID(ctx context.Context, id int64) (*models.VideoProject, error)
	List(ctx context.Context, limit int) ([]models.VideoProject, error)
}

type ProjectHandler struct {
	projects projectReader
}

func NewProjectHandler(projects projectReader) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context(), limitParam(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if projects == nil {
		projects = []models.VideoProject{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid project ID", r))
		return
	}

	project, err := h.projects.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, project)
}
