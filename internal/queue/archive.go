package queue

import (
	"context"
	"log"
	"os"

	"github.com/codebuildervaibhav/voice-clipboard/internal/config"
	"github.com/codebuildervaibhav/voice-clipboard/internal/storage"
)

// NewArchivePool builds the configured archivers behind a worker pool.
// It returns nil when no archiver is enabled. The pool is not started.
func NewArchivePool(cfg config.ArchiveSection) *WorkerPool {
	var archivers []storage.Archiver

	if cfg.LocalDir != "" {
		if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
			log.Printf("WARNING: local archive disabled: %v", err)
		} else {
			archivers = append(archivers, storage.NewLocalArchive(cfg.LocalDir))
			log.Printf("Local archive enabled (%s)", cfg.LocalDir)
		}
	}

	if cfg.Drive.CredentialsFile != "" {
		if _, err := os.Stat(cfg.Drive.CredentialsFile); err != nil {
			log.Println("Google Drive credentials not found - archiving locally only")
		} else {
			// The oauth2 client keeps this context for token refreshes
			drive, err := storage.NewDriveArchive(context.Background(),
				cfg.Drive.CredentialsFile, cfg.Drive.TokenFile, cfg.Drive.FolderName)
			if err != nil {
				log.Printf("WARNING: Google Drive not available: %v", err)
			} else {
				archivers = append(archivers, drive)
				log.Println("Google Drive archive enabled")
			}
		}
	}

	if len(archivers) == 0 {
		return nil
	}
	return NewWorkerPool(2, 100, archivers...)
}
