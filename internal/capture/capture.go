// Package capture defines the microphone capture contract used by the
// recording workflow. Implementations live in subpackages.
package capture

import (
	"context"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// Capture records one session at a time.
//
// StartCapture fails with types.ErrAlreadyCapturing while a session is open;
// StopCapture fails with types.ErrNotCapturing when none is. Both wrap the
// cause in a *types.CaptureError.
type Capture interface {
	StartCapture(ctx context.Context) error
	StopCapture(ctx context.Context) (types.AudioBlob, error)
	IsCapturing() bool
}
