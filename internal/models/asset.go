package models

import "time"

// AssetKind is the binary asset category. The kind keys the per-project
// sequential counter used for human-readable system filenames.
type AssetKind string

const (
	AssetVideo AssetKind = "VID"
	AssetAudio AssetKind = "AUD"
)

// AssetStatus marks an entry active or soft-deleted. Soft deletion removes
// the entry from active listings without reclaiming its counter value or the
// stored object.
type AssetStatus string

const (
	AssetActive  AssetStatus = "active"
	AssetDeleted AssetStatus = "deleted"
)

// AssetEntry maps a content hash to a stored binary within a project scope.
// (ProjectID, ContentHash) is unique among active entries; Seq is strictly
// increasing per (ProjectID, Kind) with gaps only after a failed ingest that
// had already taken a counter value.
type AssetEntry struct {
	ID               string      `json:"id"`
	ProjectID        string      `json:"project_id"`
	ContentHash      string      `json:"content_hash"`
	StorageKey       string      `json:"storage_key"`
	Kind             AssetKind   `json:"kind"`
	OriginalFilename string      `json:"original_filename"`
	SystemFilename   string      `json:"system_filename"`
	ContentType      string      `json:"content_type"`
	SizeBytes        int64       `json:"size_bytes"`
	Seq              int64       `json:"seq"`
	Status           AssetStatus `json:"status"`
	UploadedAt       time.Time   `json:"uploaded_at"`
}
