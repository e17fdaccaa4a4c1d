package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reelforge/internal/httpkit"
	"reelforge/internal/models"
)

var ErrProjectNotFound = errors.New("project not found")
var ErrProjectNameExists = errors.New("project name already exists")

type ProjectRepository struct {
	db *pgxpool.Pool
}

func NewProjectRepository(db *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO projects
			(id, name, active, schedule_every_days,
			 morning_template_id, evening_template_id,
			 platform_user_id, access_token)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, p.ID, p.Name, p.Active, p.ScheduleEveryDays,
		p.MorningTemplateID, p.EveningTemplateID,
		p.PlatformUserID, p.AccessToken).Scan(&p.CreatedAt)

	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return ErrProjectNameExists
		}
		return err
	}
	return nil
}

func (r *ProjectRepository) Get(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	err := r.db.QueryRow(ctx, `
		SELECT id, name, active, schedule_every_days,
		       morning_template_id, evening_template_id,
		       platform_user_id, access_token, last_scheduled_at, created_at
		FROM projects
		WHERE id=$1
	`, id).Scan(
		&p.ID,
		&p.Name,
		&p.Active,
		&p.ScheduleEveryDays,
		&p.MorningTemplateID,
		&p.EveningTemplateID,
		&p.PlatformUserID,
		&p.AccessToken,
		&p.LastScheduledAt,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) ListActive(ctx context.Context) ([]models.Project, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, active, schedule_every_days,
		       morning_template_id, evening_template_id,
		       platform_user_id, access_token, last_scheduled_at, created_at
		FROM projects
		WHERE active
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Active,
			&p.ScheduleEveryDays,
			&p.MorningTemplateID,
			&p.EveningTemplateID,
			&p.PlatformUserID,
			&p.AccessToken,
			&p.LastScheduledAt,
			&p.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProjectRepository) MarkScheduled(ctx context.Context, projectID string, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE projects
		SET last_scheduled_at=$2
		WHERE id=$1
	`, projectID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}
