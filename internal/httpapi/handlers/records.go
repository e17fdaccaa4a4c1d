package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"reelforge/internal/httpkit"
	"reelforge/internal/models"
	"reelforge/internal/pkg/ids"
	"reelforge/internal/queue"
	"reelforge/internal/repositories"
)

type CreateRecordRequest struct {
	ProjectID  string         `json:"project_id"`
	TemplateID string         `json:"template_id"`
	Input      map[string]any `json:"input"`
	Publish    bool           `json:"publish"`
}

// PostRecord creates a render record and queues it immediately. This is
// the manual "render now" path; scheduled records come from the worker.
func (h *Handler) PostRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRecordRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.TemplateID = strings.TrimSpace(req.TemplateID)
	if req.ProjectID == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "project_id is required", map[string]any{"field": "project_id"})
		return
	}
	if req.TemplateID == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "template_id is required", map[string]any{"field": "template_id"})
		return
	}

	if _, err := h.projects.Get(ctx, req.ProjectID); err != nil {
		httpkit.WriteErr(w, 404, "PROJECT_NOT_FOUND", "project not found", map[string]any{"project_id": req.ProjectID})
		return
	}
	if _, err := h.templates.Get(ctx, req.TemplateID); err != nil {
		httpkit.WriteErr(w, 404, "TEMPLATE_NOT_FOUND", "template not found", map[string]any{"template_id": req.TemplateID})
		return
	}

	rec := &models.Record{
		ID:         ids.New("rec"),
		ProjectID:  req.ProjectID,
		TemplateID: req.TemplateID,
		Input:      req.Input,
		Status:     models.RecordPending,
	}
	if err := h.records.Create(ctx, rec); err != nil {
		h.log.FromContext(ctx).Error("record insert failed", "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert failed", nil)
		return
	}

	_, err := h.queue.EnqueueRender(ctx, queue.TaskRender, queue.RenderPayload{
		RecordID: rec.ID,
		Publish:  req.Publish,
	}, queue.Options{
		MaxAttempts: h.jobs.MaxAttempts,
		BaseDelay:   h.jobs.BaseDelay,
		Retention:   h.jobs.Retention,
		TaskID:      "render:" + rec.ID,
	})
	if err != nil && !errors.Is(err, queue.ErrDuplicateTask) {
		h.log.FromContext(ctx).Error("record enqueue failed", "record_id", rec.ID, "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "queue push failed", nil)
		return
	}

	httpkit.WriteJSON(w, 201, map[string]any{"record": rec})
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(r.URL.Query().Get("project_id"))
	if projectID == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "project_id query parameter is required", nil)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	records, err := h.records.ListByProject(r.Context(), projectID, limit)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"records": records})
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordId")

	rec, err := h.records.Get(r.Context(), recordID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			httpkit.WriteErr(w, 404, "RECORD_NOT_FOUND", "record not found", map[string]any{"record_id": recordID})
			return
		}
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"record": rec})
}

// PostRecordPublish queues the publish phase for a record that already
// holds a rendered artifact.
func (h *Handler) PostRecordPublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID := chi.URLParam(r, "recordId")

	rec, err := h.records.Get(ctx, recordID)
	if err != nil {
		httpkit.WriteErr(w, 404, "RECORD_NOT_FOUND", "record not found", map[string]any{"record_id": recordID})
		return
	}
	if rec.Status == models.RecordPublished {
		httpkit.WriteErr(w, 409, "ALREADY_PUBLISHED", "record is already published", nil)
		return
	}
	if rec.OutputKey == nil || *rec.OutputKey == "" {
		httpkit.WriteErr(w, 409, "NOT_RENDERED", "record has no rendered output to publish", nil)
		return
	}

	_, err = h.queue.EnqueuePublish(ctx, queue.PublishPayload{RecordID: rec.ID}, queue.Options{
		MaxAttempts: h.jobs.MaxAttempts,
		BaseDelay:   h.jobs.BaseDelay,
		Retention:   h.jobs.Retention,
		TaskID:      "publish:" + rec.ID,
	})
	if err != nil && !errors.Is(err, queue.ErrDuplicateTask) {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "queue push failed", nil)
		return
	}

	httpkit.WriteJSON(w, 202, map[string]any{
		"record_id": rec.ID,
		"queued":    true,
	})
}
