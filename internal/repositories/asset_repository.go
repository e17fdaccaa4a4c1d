package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reelforge/internal/contentstore"
	"reelforge/internal/httpkit"
	"reelforge/internal/models"
)

// AssetRepository implements contentstore.AssetRepo on postgres.
//
// Active-hash uniqueness relies on a partial unique index:
//
//	CREATE UNIQUE INDEX assets_active_hash
//	ON assets (project_id, content_hash) WHERE status = 'active';
type AssetRepository struct {
	db *pgxpool.Pool
}

func NewAssetRepository(db *pgxpool.Pool) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) FindActiveByHash(ctx context.Context, projectID, hash string) (*models.AssetEntry, error) {
	return r.scanOne(ctx, `
		SELECT id, project_id, content_hash, storage_key, kind,
		       original_filename, system_filename, content_type,
		       size_bytes, seq, status, uploaded_at
		FROM assets
		WHERE project_id=$1 AND content_hash=$2 AND status='active'
	`, projectID, hash)
}

// NextSeq atomically claims the next counter value for (project, kind).
// The upsert makes first use and increment a single statement, so two
// concurrent ingests can never observe the same value.
func (r *AssetRepository) NextSeq(ctx context.Context, projectID string, kind models.AssetKind) (int64, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO asset_counters (project_id, kind, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (project_id, kind)
		DO UPDATE SET value = asset_counters.value + 1
		RETURNING value
	`, projectID, kind).Scan(&seq)
	return seq, err
}

func (r *AssetRepository) Create(ctx context.Context, e *models.AssetEntry) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO assets
			(id, project_id, content_hash, storage_key, kind,
			 original_filename, system_filename, content_type,
			 size_bytes, seq, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING uploaded_at
	`, e.ID, e.ProjectID, e.ContentHash, e.StorageKey, e.Kind,
		e.OriginalFilename, e.SystemFilename, e.ContentType,
		e.SizeBytes, e.Seq, e.Status).Scan(&e.UploadedAt)

	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return contentstore.ErrHashExists
		}
		return err
	}
	return nil
}

func (r *AssetRepository) Get(ctx context.Context, id string) (*models.AssetEntry, error) {
	return r.scanOne(ctx, `
		SELECT id, project_id, content_hash, storage_key, kind,
		       original_filename, system_filename, content_type,
		       size_bytes, seq, status, uploaded_at
		FROM assets
		WHERE id=$1
	`, id)
}

func (r *AssetRepository) ListActiveByProject(ctx context.Context, projectID string) ([]models.AssetEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, project_id, content_hash, storage_key, kind,
		       original_filename, system_filename, content_type,
		       size_bytes, seq, status, uploaded_at
		FROM assets
		WHERE project_id=$1 AND status='active'
		ORDER BY uploaded_at DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AssetEntry
	for rows.Next() {
		e, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *AssetRepository) MarkDeleted(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE assets
		SET status='deleted'
		WHERE id=$1 AND status='active'
	`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return contentstore.ErrNotFound
	}
	return nil
}

func (r *AssetRepository) scanOne(ctx context.Context, sql string, args ...any) (*models.AssetEntry, error) {
	e, err := scanAsset(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentstore.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*models.AssetEntry, error) {
	var e models.AssetEntry
	err := row.Scan(
		&e.ID,
		&e.ProjectID,
		&e.ContentHash,
		&e.StorageKey,
		&e.Kind,
		&e.OriginalFilename,
		&e.SystemFilename,
		&e.ContentType,
		&e.SizeBytes,
		&e.Seq,
		&e.Status,
		&e.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
