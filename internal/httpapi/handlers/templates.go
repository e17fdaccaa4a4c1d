package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"reelforge/internal/composition"
	"reelforge/internal/httpkit"
	"reelforge/internal/models"
	"reelforge/internal/pkg/ids"
	"reelforge/internal/repositories"
)

type CreateTemplateRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Definition  map[string]any `json:"definition"`
	Defaults    map[string]any `json:"defaults"`
}

// PostTemplate validates the composition definition and stores the
// template. Timeline overruns are legal but returned as warnings.
func (h *Handler) PostTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateTemplateRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "name is required", map[string]any{"field": "name"})
		return
	}
	if req.Definition == nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "definition is required", map[string]any{"field": "definition"})
		return
	}

	schema, err := schemaFromDefinition(req.Definition)
	if err != nil {
		httpkit.WriteErr(w, 400, "INVALID_COMPOSITION", err.Error(), nil)
		return
	}

	tpl := &models.Template{
		ID:          ids.New("tpl"),
		Name:        req.Name,
		Description: req.Description,
		Definition:  req.Definition,
		Defaults:    req.Defaults,
	}
	if err := h.templates.Create(ctx, tpl); err != nil {
		if errors.Is(err, repositories.ErrTemplateNameExists) {
			httpkit.WriteErr(w, 409, "TEMPLATE_NAME_EXISTS", "template name already exists", map[string]any{"name": req.Name})
			return
		}
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert failed", nil)
		return
	}

	resp := map[string]any{"template": tpl}
	if warnings := schema.BoundsWarnings(); len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	httpkit.WriteJSON(w, 201, resp)
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.List(r.Context())
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"templates": templates})
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateId")

	tpl, err := h.templates.Get(r.Context(), templateID)
	if err != nil {
		if errors.Is(err, repositories.ErrTemplateNotFound) {
			httpkit.WriteErr(w, 404, "TEMPLATE_NOT_FOUND", "template not found", map[string]any{"template_id": templateID})
			return
		}
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"template": tpl})
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateId")

	if err := h.templates.Delete(r.Context(), templateID); err != nil {
		if errors.Is(err, repositories.ErrTemplateNotFound) {
			httpkit.WriteErr(w, 404, "TEMPLATE_NOT_FOUND", "template not found", map[string]any{"template_id": templateID})
			return
		}
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "delete failed", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func schemaFromDefinition(definition map[string]any) (*composition.Schema, error) {
	raw, err := json.Marshal(definition)
	if err != nil {
		return nil, err
	}
	var schema composition.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, err
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return &schema, nil
}
