package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// LocalArchive writes each record as a text file plus a metadata JSON file
// under a dated tree: <dir>/2025/01/23/
type LocalArchive struct {
	outputDir string
}

// NewLocalArchive creates an archiver rooted at outputDir
func NewLocalArchive(outputDir string) *LocalArchive {
	return &LocalArchive{
		outputDir: outputDir,
	}
}

// Name identifies the archiver in logs
func (la *LocalArchive) Name() string { return "local" }

// Archive saves the record text and its metadata to local disk
func (la *LocalArchive) Archive(ctx context.Context, rec types.Record) error {
	dateDir := filepath.Join(append([]string{la.outputDir}, datedPath(rec.Timestamp)...)...)
	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return fmt.Errorf("failed to create date directory: %w", err)
	}

	base := archiveBaseName(rec)
	txtPath := filepath.Join(dateDir, base+".txt")
	metaPath := filepath.Join(dateDir, base+"_meta.json")

	if err := os.WriteFile(txtPath, []byte(rec.Text), 0644); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	metaJSON, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	return nil
}

// datedPath splits a timestamp into its UTC year, month and day folders
func datedPath(ts time.Time) []string {
	ts = ts.UTC()
	return []string{
		fmt.Sprintf("%d", ts.Year()),
		fmt.Sprintf("%02d", ts.Month()),
		fmt.Sprintf("%02d", ts.Day()),
	}
}

// archiveBaseName builds e.g. 20250123_143022_<id>
func archiveBaseName(rec types.Record) string {
	return fmt.Sprintf("%s_%s", rec.Timestamp.UTC().Format("20060102_150405"), sanitizeFilename(rec.ID))
}

var filenameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

// sanitizeFilename replaces characters that are invalid in file names
func sanitizeFilename(name string) string {
	result := filenameReplacer.Replace(name)
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
