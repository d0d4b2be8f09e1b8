// Package cleanup removes capture temp files left behind by crashed or
// interrupted recordings.
package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Scheduler sweeps prefix-matched files out of a temp directory
type Scheduler struct {
	tempDir  string
	prefix   string
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewScheduler creates a scheduler for files named prefix* in tempDir.
// Only the top level of tempDir is swept, since it is usually shared.
func NewScheduler(tempDir, prefix string, intervalMinutes, maxAgeHours int) *Scheduler {
	if intervalMinutes <= 0 {
		intervalMinutes = 30
	}
	if maxAgeHours <= 0 {
		maxAgeHours = 1
	}
	return &Scheduler{
		tempDir:  tempDir,
		prefix:   prefix,
		interval: time.Duration(intervalMinutes) * time.Minute,
		maxAge:   time.Duration(maxAgeHours) * time.Hour,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start sweeps once, then periodically until Stop
func (s *Scheduler) Start() {
	log.Println("Running initial temp file cleanup...")
	s.Sweep()

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %s, max age: %s)", s.interval, s.maxAge)
}

// Stop stops the periodic sweep. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		log.Println("Cleanup scheduler stopped")
	})
}

// Sweep removes matching files older than the max age and returns how many
// were deleted
func (s *Scheduler) Sweep() int {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		log.Printf("Error during cleanup: %v", err)
		return 0
	}

	now := s.now()
	var deletedCount int
	var deletedSize int64

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), s.prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			continue
		}

		path := filepath.Join(s.tempDir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("Failed to delete old file %s: %v", path, err)
			continue
		}
		deletedCount++
		deletedSize += info.Size()
		log.Printf("Deleted old temp file: %s (age: %s, size: %dKB)",
			entry.Name(), age.Round(time.Minute), info.Size()/1024)
	}

	if deletedCount > 0 {
		log.Printf("Cleanup complete: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
	return deletedCount
}

// EnsureTempDirExists creates the temp directory if it doesn't exist
func EnsureTempDirExists(tempDir string) error {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return err
	}
	log.Printf("Temp directory ready: %s", tempDir)
	return nil
}
