package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across components
var (
	ErrNotConnected      = errors.New("database not connected")
	ErrMissingAPIKey     = errors.New("GROQ_API_KEY is not set")
	ErrAlreadyCapturing  = errors.New("already recording")
	ErrNotCapturing      = errors.New("not recording")
	ErrAlreadyRegistered = errors.New("hotkey already registered")
)

// CaptureError reports a microphone or device failure
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// TranscriptionError reports a missing credential or a failed provider call
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return e.Err.Error()
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// PersistenceError reports a history store failure
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ValidationError is a caller-side input error. It is never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is, or wraps, a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
