package queue

import (
	"time"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// Job statuses
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Job is one record waiting to be archived
type Job struct {
	ID        string
	Record    types.Record
	Status    string
	Errors    []error
	CreatedAt time.Time
}

// NewJob creates a queued job for rec
func NewJob(rec types.Record) *Job {
	return &Job{
		ID:        rec.ID,
		Record:    rec,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}
}
