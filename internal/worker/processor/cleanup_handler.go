package processor

import (
	"os"
	"path/filepath"
	"time"
)

// Cleanup removes per-record scratch state once the record no longer
// needs it, and sweeps leftovers from crashed runs.
type Cleanup struct {
	scratchDir string
}

func NewCleanup(scratchDir string) *Cleanup {
	return &Cleanup{scratchDir: scratchDir}
}

// CleanupRecord drops the record's input directory and local artifact.
// Errors are swallowed; scratch is best effort by definition and the
// sweeper catches anything left behind.
func (c *Cleanup) CleanupRecord(recordID string) {
	_ = os.RemoveAll(filepath.Join(c.scratchDir, "records", recordID))
	_ = os.Remove(filepath.Join(c.scratchDir, "renders", recordID+".mp4"))
}

// SweepOrphans removes scratch entries older than maxAge. Returns how
// many entries were removed.
func (c *Cleanup) SweepOrphans(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, dir := range []string{
		filepath.Join(c.scratchDir, "records"),
		filepath.Join(c.scratchDir, "renders"),
	} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			info, err := e.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if err := os.RemoveAll(filepath.Join(dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed
}
