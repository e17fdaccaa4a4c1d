package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reelforge/internal/models"
)

var ErrRecordNotFound = errors.New("record not found")

// ErrIllegalTransition means the record was not in any of the expected
// source states. The caller decides whether that is a conflict or a
// benign duplicate delivery.
var ErrIllegalTransition = errors.New("illegal record transition")

type RecordRepository struct {
	db *pgxpool.Pool
}

func NewRecordRepository(db *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Create(ctx context.Context, rec *models.Record) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO records (id, project_id, template_id, input_json, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at
	`, rec.ID, rec.ProjectID, rec.TemplateID, rec.Input, rec.Status).
		Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

func (r *RecordRepository) Get(ctx context.Context, id string) (*models.Record, error) {
	var rec models.Record
	err := r.db.QueryRow(ctx, `
		SELECT id, project_id, template_id, input_json, status, stage,
		       output_key, published_media_id, error_text, created_at, updated_at
		FROM records
		WHERE id=$1
	`, id).Scan(
		&rec.ID,
		&rec.ProjectID,
		&rec.TemplateID,
		&rec.Input,
		&rec.Status,
		&rec.Stage,
		&rec.OutputKey,
		&rec.PublishedMediaID,
		&rec.ErrorText,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *RecordRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]models.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, project_id, template_id, status, stage,
		       output_key, published_media_id, error_text, created_at, updated_at
		FROM records
		WHERE project_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(
			&rec.ID,
			&rec.ProjectID,
			&rec.TemplateID,
			&rec.Status,
			&rec.Stage,
			&rec.OutputKey,
			&rec.PublishedMediaID,
			&rec.ErrorText,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Transition moves a record into a new status only if it currently sits
// in one of the given source states. The state machine direction is
// validated in code; the WHERE clause makes the move atomic.
func (r *RecordRepository) Transition(ctx context.Context, id string, from []models.RecordStatus, to models.RecordStatus, stage string) error {
	for _, f := range from {
		if !models.CanTransition(f, to) {
			return ErrIllegalTransition
		}
	}

	cmd, err := r.db.Exec(ctx, `
		UPDATE records
		SET status=$2, stage=$3, updated_at=now()
		WHERE id=$1 AND status=ANY($4)
	`, id, to, stage, from)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ErrIllegalTransition
	}
	return nil
}

func (r *RecordRepository) MarkCompleted(ctx context.Context, id, outputKey string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE records
		SET status=$2, output_key=$3, stage='', error_text=NULL, updated_at=now()
		WHERE id=$1 AND status=ANY($4)
	`, id, models.RecordCompleted, outputKey,
		[]models.RecordStatus{models.RecordRendering})
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrIllegalTransition
	}
	return nil
}

func (r *RecordRepository) MarkPublished(ctx context.Context, id, mediaID string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE records
		SET status=$2, published_media_id=$3, stage='', error_text=NULL, updated_at=now()
		WHERE id=$1 AND status=ANY($4)
	`, id, models.RecordPublished, mediaID,
		[]models.RecordStatus{models.RecordQueuedForPublish})
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrIllegalTransition
	}
	return nil
}

// MarkFailed records the failing stage and message. It applies from any
// non-terminal state so a crash in any phase lands in FAILED.
func (r *RecordRepository) MarkFailed(ctx context.Context, id, stage, errText string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE records
		SET status=$2, stage=$3, error_text=$4, updated_at=now()
		WHERE id=$1 AND status <> $5
	`, id, models.RecordFailed, stage, errText, models.RecordPublished)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}
