// Package contentstore ingests binary assets with content-hash
// deduplication. Bytes are hashed while spooling to a temp file, then
// either matched against an existing active entry or uploaded under a
// generated system filename.
package contentstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"reelforge/internal/models"
	"reelforge/internal/pkg/ids"
	"reelforge/internal/pkg/logger"
	"reelforge/internal/ports"
)

var (
	ErrNotFound = errors.New("contentstore: asset not found")

	// ErrHashExists signals a concurrent ingest of the same content won
	// the insert race. The caller refetches the winner.
	ErrHashExists = errors.New("contentstore: active entry with this hash exists")

	ErrUnsupportedType = errors.New("contentstore: unsupported content type")
)

// AssetRepo is the persistence surface the store needs. Implementations
// must make NextSeq atomic per (project, kind) and enforce the active
// (project, hash) uniqueness on Create.
type AssetRepo interface {
	FindActiveByHash(ctx context.Context, projectID, hash string) (*models.AssetEntry, error)
	NextSeq(ctx context.Context, projectID string, kind models.AssetKind) (int64, error)
	Create(ctx context.Context, entry *models.AssetEntry) error
	Get(ctx context.Context, id string) (*models.AssetEntry, error)
	MarkDeleted(ctx context.Context, id string) error
}

type IngestInput struct {
	ProjectID        string
	OriginalFilename string
	ContentType      string
	Reader           io.Reader
}

type IngestResult struct {
	Entry *models.AssetEntry
	// Deduplicated is true when the bytes matched an existing active
	// entry and no new object was stored.
	Deduplicated bool
}

type Store struct {
	repo AssetRepo
	sp   ports.StorageProvider
	log  *logger.Logger
}

func New(repo AssetRepo, sp ports.StorageProvider, log *logger.Logger) *Store {
	return &Store{repo: repo, sp: sp, log: log.WithComponent("contentstore")}
}

// Ingest reads the whole stream, deduplicates by sha256 within the
// project and stores new content under assets/<project>/<system name>.
func (s *Store) Ingest(ctx context.Context, in IngestInput) (IngestResult, error) {
	if in.ProjectID == "" {
		return IngestResult{}, fmt.Errorf("contentstore: project_id is required")
	}

	kind, err := kindFor(in.OriginalFilename, in.ContentType)
	if err != nil {
		return IngestResult{}, err
	}

	tmp, err := os.CreateTemp("", "ingest-*")
	if err != nil {
		return IngestResult{}, err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	hasher := sha256.New()
	size, err := io.Copy(tmp, io.TeeReader(in.Reader, hasher))
	if err != nil {
		return IngestResult{}, fmt.Errorf("contentstore: spool failed: %w", err)
	}
	hash := hex.EncodeToString(hasher.Sum(nil))

	if existing, err := s.repo.FindActiveByHash(ctx, in.ProjectID, hash); err == nil {
		s.log.Info("asset deduplicated",
			"project_id", in.ProjectID,
			"asset_id", existing.ID,
			"content_hash", hash)
		return IngestResult{Entry: existing, Deduplicated: true}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return IngestResult{}, err
	}

	// The counter value is consumed even if a later step fails; gaps in
	// the sequence are acceptable, reuse is not.
	seq, err := s.repo.NextSeq(ctx, in.ProjectID, kind)
	if err != nil {
		return IngestResult{}, err
	}

	systemName := SystemFilename(kind, seq, in.OriginalFilename)
	storageKey := path.Join("assets", in.ProjectID, systemName)

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return IngestResult{}, err
	}
	put, err := s.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   storageKey,
		ContentType: in.ContentType,
		Reader:      tmp,
		Size:        size,
	})
	if err != nil {
		return IngestResult{}, fmt.Errorf("contentstore: upload failed: %w", err)
	}

	entry := &models.AssetEntry{
		ID:               ids.New("ast"),
		ProjectID:        in.ProjectID,
		ContentHash:      hash,
		StorageKey:       put.ObjectKey,
		Kind:             kind,
		OriginalFilename: in.OriginalFilename,
		SystemFilename:   systemName,
		ContentType:      in.ContentType,
		SizeBytes:        size,
		Seq:              seq,
		Status:           models.AssetActive,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		if errors.Is(err, ErrHashExists) {
			// A concurrent ingest of identical bytes won. Drop our copy
			// and hand back the winner.
			if delErr := s.sp.DeleteObject(ctx, put.ObjectKey); delErr != nil {
				s.log.Warn("failed to remove losing duplicate object",
					"storage_key", put.ObjectKey, "error", delErr)
			}
			winner, getErr := s.repo.FindActiveByHash(ctx, in.ProjectID, hash)
			if getErr != nil {
				return IngestResult{}, getErr
			}
			return IngestResult{Entry: winner, Deduplicated: true}, nil
		}
		return IngestResult{}, err
	}

	s.log.Info("asset ingested",
		"project_id", in.ProjectID,
		"asset_id", entry.ID,
		"system_filename", systemName,
		"size_bytes", size)
	return IngestResult{Entry: entry}, nil
}

// SoftDelete removes the entry from active listings. The stored object
// and the counter value are retained.
func (s *Store) SoftDelete(ctx context.Context, id string) error {
	return s.repo.MarkDeleted(ctx, id)
}

func (s *Store) Get(ctx context.Context, id string) (*models.AssetEntry, error) {
	return s.repo.Get(ctx, id)
}

// SystemFilename builds names like VID_0007.mp4. The extension comes
// from the original filename, lowercased.
func SystemFilename(kind models.AssetKind, seq int64, originalFilename string) string {
	ext := strings.ToLower(path.Ext(originalFilename))
	return fmt.Sprintf("%s_%04d%s", kind, seq, ext)
}

func kindFor(filename, contentType string) (models.AssetKind, error) {
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return models.AssetVideo, nil
	case strings.HasPrefix(contentType, "audio/"):
		return models.AssetAudio, nil
	}

	switch strings.ToLower(path.Ext(filename)) {
	case ".mp4", ".mov", ".webm", ".mkv":
		return models.AssetVideo, nil
	case ".mp3", ".wav", ".m4a", ".aac", ".ogg":
		return models.AssetAudio, nil
	}

	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, filename, contentType)
}
