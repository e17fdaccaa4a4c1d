package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"reelforge/internal/contentstore"
	"reelforge/internal/httpkit"
)

// maxUploadMemory bounds how much of a multipart upload is buffered in
// memory; larger files spill to disk.
const maxUploadMemory = 32 << 20

// PostAsset ingests an uploaded binary into the project's content
// store. Identical bytes return the existing entry with 200 instead of
// creating a new one.
func (h *Handler) PostAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "expected multipart form upload", nil)
		return
	}

	projectID := strings.TrimSpace(r.FormValue("project_id"))
	if projectID == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "project_id is required", map[string]any{"field": "project_id"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "file is required", map[string]any{"field": "file"})
		return
	}
	defer file.Close()

	res, err := h.store.Ingest(ctx, contentstore.IngestInput{
		ProjectID:        projectID,
		OriginalFilename: header.Filename,
		ContentType:      header.Header.Get("Content-Type"),
		Reader:           file,
	})
	if err != nil {
		if errors.Is(err, contentstore.ErrUnsupportedType) {
			httpkit.WriteErr(w, 415, "UNSUPPORTED_MEDIA_TYPE", "only video and audio uploads are accepted", nil)
			return
		}
		h.log.FromContext(ctx).Error("asset ingest failed", "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "asset ingest failed", nil)
		return
	}

	status := 201
	if res.Deduplicated {
		status = 200
	}
	httpkit.WriteJSON(w, status, map[string]any{
		"asset":        res.Entry,
		"deduplicated": res.Deduplicated,
	})
}

func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetId")

	entry, err := h.store.Get(r.Context(), assetID)
	if err != nil {
		httpkit.WriteErr(w, 404, "ASSET_NOT_FOUND", "asset not found", map[string]any{"asset_id": assetID})
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"asset": entry})
}

func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(r.URL.Query().Get("project_id"))
	if projectID == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "project_id query parameter is required", nil)
		return
	}

	assets, err := h.assets.ListActiveByProject(r.Context(), projectID)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"assets": assets})
}

// GetAssetURL returns a time-limited URL for the asset, when the
// storage provider supports signing.
func (h *Handler) GetAssetURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID := chi.URLParam(r, "assetId")

	entry, err := h.store.Get(ctx, assetID)
	if err != nil {
		httpkit.WriteErr(w, 404, "ASSET_NOT_FOUND", "asset not found", map[string]any{"asset_id": assetID})
		return
	}

	signed, err := h.sp.GetSignedURL(ctx, entry.StorageKey, time.Hour)
	if err != nil || signed.URL == "" {
		// No signing support; the content endpoint always works.
		httpkit.WriteJSON(w, 200, map[string]any{
			"url": "/assets/" + entry.ID + "/content",
		})
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{
		"url":        signed.URL,
		"expires_at": signed.ExpiresAt,
	})
}

// StreamAsset streams the stored bytes through the API.
func (h *Handler) StreamAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID := chi.URLParam(r, "assetId")

	entry, err := h.store.Get(ctx, assetID)
	if err != nil {
		httpkit.WriteErr(w, 404, "ASSET_NOT_FOUND", "asset not found", map[string]any{"asset_id": assetID})
		return
	}

	rc, contentType, size, err := h.sp.GetObject(ctx, entry.StorageKey)
	if err != nil {
		h.log.FromContext(ctx).Error("asset download failed",
			"asset_id", assetID, "storage_key", entry.StorageKey, "error", err.Error())
		httpkit.WriteErr(w, 502, "STORAGE_ERROR", "failed to read asset from storage", nil)
		return
	}
	defer rc.Close()

	if contentType == "" {
		contentType = entry.ContentType
	}
	w.Header().Set("Content-Type", contentType)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.Header().Set("Content-Disposition", `inline; filename="`+entry.SystemFilename+`"`)

	_, _ = io.Copy(w, rc)
}

// DeleteAsset soft-deletes the entry. The stored bytes remain; only the
// listing and hash dedup visibility change.
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetId")

	if err := h.store.SoftDelete(r.Context(), assetID); err != nil {
		if errors.Is(err, contentstore.ErrNotFound) {
			httpkit.WriteErr(w, 404, "ASSET_NOT_FOUND", "asset not found", map[string]any{"asset_id": assetID})
			return
		}
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "delete failed", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
