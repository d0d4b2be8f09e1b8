// Package history derives, validates and queries transcription records.
package history

import (
	"regexp"
	"time"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// RatePerHourUSD is the fixed transcription price per hour of audio
const RatePerHourUSD = 0.04

// dateLayout is the calendar-day key format (YYYY-MM-DD)
const dateLayout = "2006-01-02"

// Format-only check: "2025-13-01" passes on purpose.
var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// CostUSD prices an audio duration at the fixed hourly rate
func CostUSD(durationSeconds float64) float64 {
	return durationSeconds / 3600 * RatePerHourUSD
}

// DateOf truncates a timestamp to its UTC calendar day
func DateOf(ts time.Time) string {
	return ts.UTC().Format(dateLayout)
}

// ValidDate reports whether date has the YYYY-MM-DD shape
func ValidDate(date string) bool {
	return datePattern.MatchString(date)
}

// NewRecord builds a record ready for insert. An empty date is derived from ts.
func NewRecord(text string, durationSeconds float64, ts time.Time, date string) types.Record {
	if date == "" {
		date = DateOf(ts)
	}
	return types.Record{
		Text:            text,
		DurationSeconds: durationSeconds,
		CostUSD:         CostUSD(durationSeconds),
		Timestamp:       ts.UTC(),
		Date:            date,
	}
}
