package processor

import (
	"context"

	"reelforge/internal/models"
)

// Narrow persistence surfaces so the orchestrator is testable without a
// database. The repositories package satisfies all of them.

type RecordStore interface {
	Get(ctx context.Context, id string) (*models.Record, error)
	Transition(ctx context.Context, id string, from []models.RecordStatus, to models.RecordStatus, stage string) error
	MarkCompleted(ctx context.Context, id, outputKey string) error
	MarkPublished(ctx context.Context, id, mediaID string) error
	MarkFailed(ctx context.Context, id, stage, errText string) error
}

type TemplateStore interface {
	Get(ctx context.Context, id string) (*models.Template, error)
}

type ProjectStore interface {
	Get(ctx context.Context, id string) (*models.Project, error)
}

type AssetStore interface {
	Get(ctx context.Context, id string) (*models.AssetEntry, error)
}
