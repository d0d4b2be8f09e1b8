// Package notify plays the success feedback of a finished recording.
package notify

import (
	"fmt"
	"log"

	"github.com/gen2brain/beeep"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// Beep parameters of the success sound
const (
	BeepFrequency  = 800.0
	BeepDurationMs = 150
)

// Feedback beeps and optionally shows a desktop notification. Failures are
// logged only.
type Feedback struct {
	beep    bool
	desktop bool

	beepFn   func(freq float64, durationMs int) error
	notifyFn func(title, message string) error
}

// NewFeedback creates feedback with the chosen channels enabled
func NewFeedback(beep, desktop bool) *Feedback {
	return &Feedback{
		beep:     beep,
		desktop:  desktop,
		beepFn:   beeep.Beep,
		notifyFn: func(title, message string) error { return beeep.Notify(title, message, "") },
	}
}

// Success signals a completed transcription
func (f *Feedback) Success(result types.TranscriptionResult) {
	if f.beep {
		if err := f.beepFn(BeepFrequency, BeepDurationMs); err != nil {
			log.Printf("Failed to play success sound: %v", err)
		}
	}
	if f.desktop {
		if err := f.notifyFn("Copied to clipboard", summary(result)); err != nil {
			log.Printf("Failed to show notification: %v", err)
		}
	}
}

func summary(result types.TranscriptionResult) string {
	text := []rune(result.Text)
	if len(text) > 80 {
		text = append(text[:80], '…')
	}
	return fmt.Sprintf("%s (%.1fs)", string(text), result.DurationSeconds)
}
