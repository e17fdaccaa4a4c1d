package processor

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"reelforge/internal/ports"
)

// OutputHandler moves finished artifacts from scratch into durable
// storage and resolves public URLs for publishing.
type OutputHandler struct {
	sp            ports.StorageProvider
	scratchDir    string
	publicBaseURL string
}

func NewOutputHandler(sp ports.StorageProvider, scratchDir, publicBaseURL string) *OutputHandler {
	return &OutputHandler{sp: sp, scratchDir: scratchDir, publicBaseURL: publicBaseURL}
}

// ArtifactPath is where the renderer writes the record's video.
func (oh *OutputHandler) ArtifactPath(recordID string) string {
	return filepath.Join(oh.scratchDir, "renders", recordID+".mp4")
}

// ArtifactExists reports whether a previous attempt already produced
// the local artifact, letting upload-stage retries skip the render.
func (oh *OutputHandler) ArtifactExists(recordID string) bool {
	st, err := os.Stat(oh.ArtifactPath(recordID))
	return err == nil && st.Size() > 0
}

// Upload streams the artifact into storage under a deterministic key,
// so a retried upload overwrites its own partial predecessor.
func (oh *OutputHandler) Upload(ctx context.Context, recordID string) (string, error) {
	localPath := oh.ArtifactPath(recordID)
	st, err := os.Stat(localPath)
	if err != nil {
		return "", fmt.Errorf("render artifact missing: %w", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	outputKey := path.Join("renders", recordID, recordID+".mp4")
	put, err := oh.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   outputKey,
		ContentType: "video/mp4",
		Reader:      f,
		Size:        st.Size(),
	})
	if err != nil {
		return "", fmt.Errorf("artifact upload failed: %w", err)
	}
	return put.ObjectKey, nil
}

// VideoURL resolves a URL the social platform can fetch the video
// from. Signed URLs win; providers without signing fall back to the
// configured public base URL.
func (oh *OutputHandler) VideoURL(ctx context.Context, outputKey string) (string, error) {
	signed, err := oh.sp.GetSignedURL(ctx, outputKey, time.Hour)
	if err != nil {
		return "", err
	}
	if signed.URL != "" {
		return signed.URL, nil
	}
	if oh.publicBaseURL == "" {
		return "", fmt.Errorf("no signed url support and no public base url configured")
	}
	return strings.TrimRight(oh.publicBaseURL, "/") + "/" + outputKey, nil
}
