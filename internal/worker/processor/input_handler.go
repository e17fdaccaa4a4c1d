package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"reelforge/internal/ports"
)

// InputHandler materializes ingested assets into the record's scratch
// directory so the renderer can read them from local paths.
type InputHandler struct {
	assets     AssetStore
	sp         ports.StorageProvider
	scratchDir string
}

func NewInputHandler(assets AssetStore, sp ports.StorageProvider, scratchDir string) *InputHandler {
	return &InputHandler{assets: assets, sp: sp, scratchDir: scratchDir}
}

// Materialize downloads every referenced asset and returns a map from
// asset ref to local path. A missing asset fails the whole record.
func (ih *InputHandler) Materialize(ctx context.Context, recordID string, refs []string) (map[string]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	baseDir := filepath.Join(ih.scratchDir, "records", recordID, "inputs")
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create inputs directory: %w", err)
	}

	paths := make(map[string]string, len(refs))
	for _, ref := range refs {
		localPath, err := ih.materializeOne(ctx, baseDir, ref)
		if err != nil {
			return nil, err
		}
		paths[ref] = localPath
	}
	return paths, nil
}

func (ih *InputHandler) materializeOne(ctx context.Context, baseDir, assetID string) (string, error) {
	entry, err := ih.assets.Get(ctx, assetID)
	if err != nil {
		return "", fmt.Errorf("input asset %s: %w", assetID, err)
	}

	rc, _, _, err := ih.sp.GetObject(ctx, entry.StorageKey)
	if err != nil {
		return "", fmt.Errorf("download of %s failed: %w", entry.StorageKey, err)
	}
	defer rc.Close()

	// The system filename already carries the right extension and is
	// unique within the project.
	localPath := filepath.Join(baseDir, entry.SystemFilename)
	f, err := os.Create(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		return "", fmt.Errorf("writing %s: %w", localPath, err)
	}
	return localPath, nil
}
