// Package workflow drives one recording cycle at a time:
// capture -> transcription -> best-effort save -> clipboard.
package workflow

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/codebuildervaibhav/voice-clipboard/internal/capture"
	"github.com/codebuildervaibhav/voice-clipboard/internal/clipboard"
	"github.com/codebuildervaibhav/voice-clipboard/internal/history"
	"github.com/codebuildervaibhav/voice-clipboard/internal/transcription"
	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// DefaultDisplay is how long the error and success indications stay visible
const DefaultDisplay = 3 * time.Second

// Saver persists a finished transcription
type Saver interface {
	Save(ctx context.Context, result types.TranscriptionResult, ts time.Time) (string, error)
}

// Notifier gives feedback after a successful cycle
type Notifier interface {
	Success(result types.TranscriptionResult)
}

// Options tunes a Workflow. Zero durations use DefaultDisplay.
type Options struct {
	ErrorDisplay   time.Duration
	SuccessDisplay time.Duration
	// Notifier may be nil
	Notifier Notifier
}

// Workflow is the recording state machine
type Workflow struct {
	capture     capture.Capture
	transcriber transcription.Transcriber
	saver       Saver
	clipboard   clipboard.Writer
	notifier    Notifier

	errorDelay   time.Duration
	successDelay time.Duration
	now          func() time.Time

	mu          sync.Mutex
	state       types.RecordingState
	result      *types.TranscriptionResult
	showSuccess bool
	errMsg      string
	timer       *time.Timer
	timerGen    uint64
	seq         uint64

	obsMu     sync.Mutex
	observers map[int]func(types.Status)
	nextObs   int
	published uint64
}

// snapshot is a status taken under w.mu, ordered by seq
type snapshot struct {
	status types.Status
	seq    uint64
}

// New creates an idle workflow. saver may be nil to skip persistence.
func New(c capture.Capture, t transcription.Transcriber, s Saver, cb clipboard.Writer, opts Options) *Workflow {
	if opts.ErrorDisplay <= 0 {
		opts.ErrorDisplay = DefaultDisplay
	}
	if opts.SuccessDisplay <= 0 {
		opts.SuccessDisplay = DefaultDisplay
	}
	return &Workflow{
		capture:      c,
		transcriber:  t,
		saver:        s,
		clipboard:    cb,
		notifier:     opts.Notifier,
		errorDelay:   opts.ErrorDisplay,
		successDelay: opts.SuccessDisplay,
		now:          time.Now,
		state:        types.StateIdle,
		observers:    make(map[int]func(types.Status)),
	}
}

// Toggle advances the state machine by one event.
//
// idle or error: start capture. recording: stop capture and run the rest of
// the cycle before returning. transcribing: ignored.
func (w *Workflow) Toggle(ctx context.Context) {
	w.mu.Lock()
	switch w.state {
	case types.StateTranscribing:
		w.mu.Unlock()
		log.Println("Toggle ignored: transcription in progress")
		return

	case types.StateRecording:
		w.state = types.StateTranscribing
		snap := w.changedLocked()
		w.mu.Unlock()
		w.publish(snap)
		w.finish(ctx)
		return

	default:
		w.cancelTimerLocked()
		w.errMsg = ""
		w.showSuccess = false
		if err := w.capture.StartCapture(ctx); err != nil {
			snap := w.failLocked(err)
			w.mu.Unlock()
			w.publish(snap)
			return
		}
		w.state = types.StateRecording
		snap := w.changedLocked()
		w.mu.Unlock()
		w.publish(snap)
	}
}

func (w *Workflow) finish(ctx context.Context) {
	blob, err := w.capture.StopCapture(ctx)
	if err != nil {
		w.fail(err)
		return
	}
	finalized := w.now()

	result, err := w.transcriber.Transcribe(ctx, blob)
	if err != nil {
		w.fail(err)
		return
	}

	w.mu.Lock()
	w.result = &result
	w.mu.Unlock()

	if w.saver != nil {
		if _, err := w.saver.Save(ctx, result, finalized); err != nil {
			log.Printf("Failed to save transcription to history: %v", err)
		}
	}

	if err := w.clipboard.Write(ctx, result.Text); err != nil {
		w.fail(err)
		return
	}

	if w.notifier != nil {
		w.notifier.Success(result)
	}

	w.mu.Lock()
	w.state = types.StateIdle
	w.showSuccess = true
	w.armTimerLocked(w.successDelay, func() {
		w.showSuccess = false
	})
	snap := w.changedLocked()
	w.mu.Unlock()
	w.publish(snap)
}

func (w *Workflow) fail(err error) {
	w.mu.Lock()
	snap := w.failLocked(err)
	w.mu.Unlock()
	w.publish(snap)
}

func (w *Workflow) failLocked(err error) snapshot {
	log.Printf("Recording cycle failed: %v", err)
	w.state = types.StateError
	w.errMsg = err.Error()
	w.showSuccess = false
	w.armTimerLocked(w.errorDelay, func() {
		if w.state == types.StateError {
			w.state = types.StateIdle
			w.errMsg = ""
		}
	})
	return w.changedLocked()
}

// armTimerLocked replaces any pending display timer. clear runs under w.mu
// unless the timer was superseded.
func (w *Workflow) armTimerLocked(d time.Duration, clear func()) {
	w.cancelTimerLocked()
	gen := w.timerGen
	w.timer = time.AfterFunc(d, func() {
		w.mu.Lock()
		if w.timerGen != gen {
			w.mu.Unlock()
			return
		}
		clear()
		w.timer = nil
		snap := w.changedLocked()
		w.mu.Unlock()
		w.publish(snap)
	})
}

func (w *Workflow) cancelTimerLocked() {
	w.timerGen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// changedLocked numbers a state change and snapshots it for publish
func (w *Workflow) changedLocked() snapshot {
	w.seq++
	return snapshot{status: w.statusLocked(), seq: w.seq}
}

func (w *Workflow) statusLocked() types.Status {
	st := types.Status{
		State:       w.state,
		ShowSuccess: w.showSuccess,
		Error:       w.errMsg,
	}
	if w.result != nil {
		r := *w.result
		st.Result = &r
		st.CostUSD = history.CostUSD(r.DurationSeconds)
	}
	return st
}

// Status returns the current snapshot
func (w *Workflow) Status() types.Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.statusLocked()
}

// Subscribe registers fn for every status change. fn must not block.
// The returned function removes it.
func (w *Workflow) Subscribe(fn func(types.Status)) func() {
	w.obsMu.Lock()
	id := w.nextObs
	w.nextObs++
	w.observers[id] = fn
	w.obsMu.Unlock()

	return func() {
		w.obsMu.Lock()
		delete(w.observers, id)
		w.obsMu.Unlock()
	}
}

// publish delivers snap unless a later change was already delivered
func (w *Workflow) publish(snap snapshot) {
	w.obsMu.Lock()
	defer w.obsMu.Unlock()
	if snap.seq <= w.published {
		return
	}
	w.published = snap.seq
	for _, fn := range w.observers {
		fn(snap.status)
	}
}

// Close cancels pending display timers and releases an open capture
func (w *Workflow) Close(ctx context.Context) {
	w.mu.Lock()
	w.cancelTimerLocked()
	w.mu.Unlock()

	if w.capture.IsCapturing() {
		if _, err := w.capture.StopCapture(ctx); err != nil {
			log.Printf("Failed to stop capture on shutdown: %v", err)
		}
	}
}
