package history

import (
	"context"
	"fmt"
	"time"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// Store is the persistence contract for transcription records.
// Every method except Connect and Disconnect fails with types.ErrNotConnected
// until Connect has completed.
type Store interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Insert(ctx context.Context, rec types.Record) (string, error)
	AggregateByDate(ctx context.Context) ([]types.HistoryDay, error)
	QueryByDate(ctx context.Context, date string) ([]types.Record, error)
}

// AddRequest is a manually submitted record. Pointer fields distinguish
// "absent" from zero values.
type AddRequest struct {
	Text            *string  `json:"text"`
	DurationSeconds *float64 `json:"durationSeconds"`
	Timestamp       *string  `json:"timestamp,omitempty"`
	Date            string   `json:"date,omitempty"`
}

// Service is the read/write surface over a Store
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a history service backed by store
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// ListDays returns every day with its record count, most recent first
func (s *Service) ListDays(ctx context.Context) ([]types.HistoryDay, error) {
	days, err := s.store.AggregateByDate(ctx)
	if err != nil {
		return nil, err
	}
	if days == nil {
		days = []types.HistoryDay{}
	}
	return days, nil
}

// ListByDate returns the records of one day, most recent first.
// Malformed dates are rejected before the store is touched.
func (s *Service) ListByDate(ctx context.Context, date string) ([]types.Record, error) {
	if !ValidDate(date) {
		return nil, &types.ValidationError{Message: "Invalid date format. Use YYYY-MM-DD"}
	}
	records, err := s.store.QueryByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []types.Record{}
	}
	return records, nil
}

// Add validates a manual entry, derives cost and date, and inserts it
func (s *Service) Add(ctx context.Context, req AddRequest) (string, error) {
	if req.Text == nil || *req.Text == "" || req.DurationSeconds == nil {
		return "", &types.ValidationError{Message: "Missing required fields: text, durationSeconds"}
	}
	if *req.DurationSeconds < 0 {
		return "", &types.ValidationError{Message: "durationSeconds must not be negative"}
	}

	ts := s.now()
	if req.Timestamp != nil && *req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, *req.Timestamp)
		if err != nil {
			return "", &types.ValidationError{Message: fmt.Sprintf("Invalid timestamp: %s", *req.Timestamp)}
		}
		ts = parsed
	}

	return s.store.Insert(ctx, NewRecord(*req.Text, *req.DurationSeconds, ts, req.Date))
}

// Save persists a finished transcription captured at ts
func (s *Service) Save(ctx context.Context, result types.TranscriptionResult, ts time.Time) (string, error) {
	return s.store.Insert(ctx, NewRecord(result.Text, result.DurationSeconds, ts, ""))
}
