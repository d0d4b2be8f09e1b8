package types

import "time"

// RecordingState is the UI-visible state of the recording workflow
type RecordingState string

// Recording state constants
const (
	StateIdle         RecordingState = "idle"
	StateRecording    RecordingState = "recording"
	StateTranscribing RecordingState = "transcribing"
	StateSuccess      RecordingState = "success"
	StateError        RecordingState = "error"
)

// TranscriptionResult is what the speech-to-text provider returns
type TranscriptionResult struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Record is a persisted transcription. Records are never mutated after insert.
type Record struct {
	ID              string    `json:"id"`
	Text            string    `json:"text"`
	DurationSeconds float64   `json:"durationSeconds"`
	CostUSD         float64   `json:"costUsd"`
	Timestamp       time.Time `json:"timestamp"`
	Date            string    `json:"date"`
}

// HistoryDay is a per-day record count, computed on every query
type HistoryDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// AudioBlob is a single finalized capture
type AudioBlob struct {
	Data     []byte
	MimeType string
	Filename string
}

// Status is a snapshot of the workflow published to observers
type Status struct {
	State       RecordingState       `json:"state"`
	Result      *TranscriptionResult `json:"result,omitempty"`
	CostUSD     float64              `json:"costUsd,omitempty"`
	ShowSuccess bool                 `json:"showSuccess"`
	Error       string               `json:"error,omitempty"`
}

// DisplayState folds the transient success flag into the reported state
func (s Status) DisplayState() RecordingState {
	if s.State == StateIdle && s.ShowSuccess {
		return StateSuccess
	}
	return s.State
}
