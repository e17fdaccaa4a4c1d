package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"reelforge/internal/httpkit"
	"reelforge/internal/models"
	"reelforge/internal/pkg/ids"
	"reelforge/internal/repositories"
)

type CreateProjectRequest struct {
	Name              string  `json:"name"`
	ScheduleEveryDays *int    `json:"schedule_every_days"`
	MorningTemplateID *string `json:"morning_template_id"`
	EveningTemplateID *string `json:"evening_template_id"`
	PlatformUserID    string  `json:"platform_user_id"`
	AccessToken       string  `json:"access_token"`
}

func (h *Handler) PostProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateProjectRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "name is required", map[string]any{"field": "name"})
		return
	}
	if req.ScheduleEveryDays != nil && *req.ScheduleEveryDays < 1 {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "schedule_every_days must be >= 1", map[string]any{"field": "schedule_every_days"})
		return
	}

	p := &models.Project{
		ID:                ids.New("prj"),
		Name:              req.Name,
		Active:            true,
		ScheduleEveryDays: req.ScheduleEveryDays,
		MorningTemplateID: req.MorningTemplateID,
		EveningTemplateID: req.EveningTemplateID,
		PlatformUserID:    strings.TrimSpace(req.PlatformUserID),
		AccessToken:       strings.TrimSpace(req.AccessToken),
	}
	if err := h.projects.Create(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrProjectNameExists) {
			httpkit.WriteErr(w, 409, "PROJECT_NAME_EXISTS", "project name already exists", map[string]any{"name": req.Name})
			return
		}
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert failed", nil)
		return
	}

	httpkit.WriteJSON(w, 201, map[string]any{"project": p})
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.ListActive(r.Context())
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"projects": projects})
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")

	p, err := h.projects.Get(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, repositories.ErrProjectNotFound) {
			httpkit.WriteErr(w, 404, "PROJECT_NOT_FOUND", "project not found", map[string]any{"project_id": projectID})
			return
		}
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"project": p})
}
