package models

import "time"

// RecordStatus is the lifecycle state of a render record.
type RecordStatus string

const (
	RecordPending          RecordStatus = "PENDING"
	RecordRendering        RecordStatus = "RENDERING"
	RecordCompleted        RecordStatus = "COMPLETED"
	RecordQueuedForPublish RecordStatus = "QUEUED_FOR_PUBLISH"
	RecordPublished        RecordStatus = "PUBLISHED"
	RecordFailed           RecordStatus = "FAILED"
)

// Pipeline stages recorded on failure so retries can resume the right phase.
const (
	StageRender  = "render"
	StageUpload  = "upload"
	StagePublish = "publish"
)

// Record tracks one video's lifecycle from request to publish. A record is
// terminal once PUBLISHED, or once FAILED with its job's attempt budget
// exhausted; a manual re-render creates a new record, never reopens one.
type Record struct {
	ID               string         `json:"id"`
	ProjectID        string         `json:"project_id"`
	TemplateID       string         `json:"template_id"`
	Input            map[string]any `json:"input,omitempty"`
	Status           RecordStatus   `json:"status"`
	Stage            string         `json:"stage,omitempty"`
	OutputKey        *string        `json:"output_key,omitempty"`
	PublishedMediaID *string        `json:"published_media_id,omitempty"`
	ErrorText        *string        `json:"error_text,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// allowedTransitions encodes the record state machine. FAILED may move back
// into an execution state only while the owning job still has retry budget;
// the queue enforces that bound, this table enforces direction.
var allowedTransitions = map[RecordStatus][]RecordStatus{
	RecordPending:          {RecordRendering, RecordFailed},
	RecordRendering:        {RecordRendering, RecordCompleted, RecordFailed},
	RecordCompleted:        {RecordQueuedForPublish, RecordFailed},
	RecordQueuedForPublish: {RecordPublished, RecordFailed},
	RecordFailed:           {RecordRendering, RecordQueuedForPublish},
	RecordPublished:        {},
}

// CanTransition reports whether moving a record from one status to another is
// legal. Regressions out of PUBLISHED are never allowed.
func CanTransition(from, to RecordStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status admits no further transitions at all.
func (s RecordStatus) Terminal() bool {
	return s == RecordPublished
}
