package workflow

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

type fakeCapture struct {
	mu        sync.Mutex
	capturing bool
	starts    int
	stops     int
	startErr  error
	stopErr   error
}

func (f *fakeCapture) StartCapture(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return &types.CaptureError{Op: "start", Err: f.startErr}
	}
	if f.capturing {
		return &types.CaptureError{Op: "start", Err: types.ErrAlreadyCapturing}
	}
	f.capturing = true
	f.starts++
	return nil
}

func (f *fakeCapture) StopCapture(ctx context.Context) (types.AudioBlob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.capturing {
		return types.AudioBlob{}, &types.CaptureError{Op: "stop", Err: types.ErrNotCapturing}
	}
	f.capturing = false
	f.stops++
	if f.stopErr != nil {
		return types.AudioBlob{}, &types.CaptureError{Op: "stop", Err: f.stopErr}
	}
	return types.AudioBlob{Data: []byte("audio"), MimeType: "audio/mp4", Filename: "audio.m4a"}, nil
}

func (f *fakeCapture) IsCapturing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capturing
}

func (f *fakeCapture) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

type fakeTranscriber struct {
	result types.TranscriptionResult
	err    error
	// release, when set, blocks Transcribe until closed
	release chan struct{}
	started chan struct{}
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, blob types.AudioBlob) (types.TranscriptionResult, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

type savedRecord struct {
	result types.TranscriptionResult
	ts     time.Time
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []savedRecord
	err   error
}

func (f *fakeSaver) Save(ctx context.Context, result types.TranscriptionResult, ts time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, savedRecord{result, ts})
	return "id-1", nil
}

type fakeClipboard struct {
	mu     sync.Mutex
	writes []string
	err    error
}

func (f *fakeClipboard) Write(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, text)
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	count int
}

func (f *fakeNotifier) Success(types.TranscriptionResult) {
	f.mu.Lock()
	f.count++
	f.mu.Unlock()
}

type fixture struct {
	capture     *fakeCapture
	transcriber *fakeTranscriber
	saver       *fakeSaver
	clipboard   *fakeClipboard
	notifier    *fakeNotifier
	wf          *Workflow
}

func newFixture(display time.Duration) *fixture {
	f := &fixture{
		capture:     &fakeCapture{},
		transcriber: &fakeTranscriber{result: types.TranscriptionResult{Text: "Hello world", DurationSeconds: 2.5}},
		saver:       &fakeSaver{},
		clipboard:   &fakeClipboard{},
		notifier:    &fakeNotifier{},
	}
	f.wf = New(f.capture, f.transcriber, f.saver, f.clipboard, Options{
		ErrorDisplay:   display,
		SuccessDisplay: display,
		Notifier:       f.notifier,
	})
	return f
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestFullCycle(t *testing.T) {
	f := newFixture(time.Hour)
	finalized := time.Date(2025, 12, 16, 10, 30, 0, 0, time.UTC)
	f.wf.now = func() time.Time { return finalized }
	ctx := context.Background()

	if got := f.wf.Status().State; got != types.StateIdle {
		t.Fatalf("initial state = %s", got)
	}

	f.wf.Toggle(ctx)
	if got := f.wf.Status().State; got != types.StateRecording {
		t.Fatalf("after first toggle state = %s", got)
	}
	if !f.capture.IsCapturing() {
		t.Fatal("capture should be running")
	}

	f.wf.Toggle(ctx)
	st := f.wf.Status()
	if st.State != types.StateIdle || !st.ShowSuccess || st.DisplayState() != types.StateSuccess {
		t.Fatalf("after cycle status = %+v", st)
	}
	if st.Result == nil || st.Result.Text != "Hello world" {
		t.Fatalf("result not kept: %+v", st.Result)
	}
	if math.Abs(st.CostUSD-0.0000278) > 1e-7 {
		t.Errorf("cost = %v, want ~0.0000278", st.CostUSD)
	}

	if len(f.clipboard.writes) != 1 || f.clipboard.writes[0] != "Hello world" {
		t.Errorf("clipboard writes = %v", f.clipboard.writes)
	}
	if len(f.saver.saved) != 1 {
		t.Fatalf("saved = %v", f.saver.saved)
	}
	if f.saver.saved[0].result.DurationSeconds != 2.5 || !f.saver.saved[0].ts.Equal(finalized) {
		t.Errorf("saved %+v", f.saver.saved[0])
	}
	if f.notifier.count != 1 {
		t.Errorf("notifier called %d times", f.notifier.count)
	}
}

func TestToggleWhileTranscribingIsIgnored(t *testing.T) {
	f := newFixture(time.Hour)
	f.transcriber.release = make(chan struct{})
	f.transcriber.started = make(chan struct{})
	ctx := context.Background()

	f.wf.Toggle(ctx)

	done := make(chan struct{})
	go func() {
		f.wf.Toggle(ctx)
		close(done)
	}()
	<-f.transcriber.started

	if got := f.wf.Status().State; got != types.StateTranscribing {
		t.Fatalf("state = %s, want transcribing", got)
	}
	for i := 0; i < 5; i++ {
		f.wf.Toggle(ctx)
	}
	if n := f.capture.startCount(); n != 1 {
		t.Fatalf("capture started %d times, want 1", n)
	}
	if f.capture.IsCapturing() {
		t.Fatal("no capture may be running while transcribing")
	}

	close(f.transcriber.release)
	<-done

	if got := f.wf.Status().DisplayState(); got != types.StateSuccess {
		t.Errorf("state after release = %s", got)
	}
	if n := f.capture.startCount(); n != 1 {
		t.Errorf("capture started %d times after cycle, want 1", n)
	}
}

func TestPersistenceFailureIsIsolated(t *testing.T) {
	f := newFixture(time.Hour)
	f.saver.err = &types.PersistenceError{Op: "insert", Err: types.ErrNotConnected}
	ctx := context.Background()

	f.wf.Toggle(ctx)
	f.wf.Toggle(ctx)

	st := f.wf.Status()
	if st.State != types.StateIdle || st.Error != "" {
		t.Fatalf("persistence failure leaked into status: %+v", st)
	}
	if st.Result == nil || st.Result.Text != "Hello world" {
		t.Errorf("result not shown: %+v", st.Result)
	}
	if len(f.clipboard.writes) != 1 || f.clipboard.writes[0] != "Hello world" {
		t.Errorf("clipboard writes = %v", f.clipboard.writes)
	}
}

func TestNilSaverSkipsPersistence(t *testing.T) {
	f := newFixture(time.Hour)
	f.wf.saver = nil
	ctx := context.Background()

	f.wf.Toggle(ctx)
	f.wf.Toggle(ctx)

	if got := f.wf.Status().DisplayState(); got != types.StateSuccess {
		t.Errorf("state = %s", got)
	}
}

func TestFailuresResetToIdle(t *testing.T) {
	testCases := []struct {
		name    string
		setup   func(f *fixture)
		toggles int
	}{
		{"capture start", func(f *fixture) { f.capture.startErr = errors.New("permission denied") }, 1},
		{"capture stop", func(f *fixture) { f.capture.stopErr = errors.New("device lost") }, 2},
		{"transcription", func(f *fixture) { f.transcriber.err = &types.TranscriptionError{Err: types.ErrMissingAPIKey} }, 2},
		{"clipboard", func(f *fixture) { f.clipboard.err = errors.New("clipboard unavailable") }, 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(30 * time.Millisecond)
			tc.setup(f)
			ctx := context.Background()

			for i := 0; i < tc.toggles; i++ {
				f.wf.Toggle(ctx)
			}

			st := f.wf.Status()
			if st.State != types.StateError || st.Error == "" {
				t.Fatalf("expected error state, got %+v", st)
			}
			if f.notifier.count != 0 {
				t.Error("failure must not signal success")
			}

			waitFor(t, "auto reset", func() bool {
				st := f.wf.Status()
				return st.State == types.StateIdle && st.Error == ""
			})
			if f.capture.IsCapturing() {
				t.Error("capture left running after failure")
			}
		})
	}
}

func TestToggleFromErrorStartsCapture(t *testing.T) {
	f := newFixture(50 * time.Millisecond)
	f.transcriber.err = errors.New("boom")
	ctx := context.Background()

	f.wf.Toggle(ctx)
	f.wf.Toggle(ctx)
	if got := f.wf.Status().State; got != types.StateError {
		t.Fatalf("state = %s, want error", got)
	}

	f.wf.Toggle(ctx)
	if got := f.wf.Status().State; got != types.StateRecording {
		t.Fatalf("state = %s, want recording", got)
	}

	// The pending error reset must not clobber the new session
	time.Sleep(100 * time.Millisecond)
	if got := f.wf.Status().State; got != types.StateRecording {
		t.Fatalf("state = %s after old reset window, want recording", got)
	}
}

func TestSuccessFlagClears(t *testing.T) {
	f := newFixture(30 * time.Millisecond)
	ctx := context.Background()

	f.wf.Toggle(ctx)
	f.wf.Toggle(ctx)
	if !f.wf.Status().ShowSuccess {
		t.Fatal("success flag should be set")
	}

	waitFor(t, "success flag to clear", func() bool { return !f.wf.Status().ShowSuccess })

	st := f.wf.Status()
	if st.State != types.StateIdle {
		t.Errorf("state = %s", st.State)
	}
	if st.Result == nil {
		t.Error("result should stay visible after the flag clears")
	}
}

func TestSubscribe(t *testing.T) {
	f := newFixture(time.Hour)
	ctx := context.Background()

	var (
		mu     sync.Mutex
		states []types.RecordingState
	)
	unsubscribe := f.wf.Subscribe(func(st types.Status) {
		mu.Lock()
		states = append(states, st.DisplayState())
		mu.Unlock()
	})

	f.wf.Toggle(ctx)
	f.wf.Toggle(ctx)
	unsubscribe()
	f.wf.Toggle(ctx)

	mu.Lock()
	defer mu.Unlock()
	want := []types.RecordingState{types.StateRecording, types.StateTranscribing, types.StateSuccess}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %s, want %s", i, states[i], want[i])
		}
	}
}

func TestLateTimerSnapshotIsDropped(t *testing.T) {
	f := newFixture(time.Hour)
	ctx := context.Background()

	var (
		mu     sync.Mutex
		states []types.RecordingState
	)
	f.wf.Subscribe(func(st types.Status) {
		mu.Lock()
		states = append(states, st.DisplayState())
		mu.Unlock()
	})

	// A display timer takes its idle snapshot, then a toggle overtakes it
	f.wf.mu.Lock()
	late := f.wf.changedLocked()
	f.wf.mu.Unlock()

	f.wf.Toggle(ctx)
	f.wf.publish(late)

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 1 || states[0] != types.StateRecording {
		t.Errorf("states = %v, want [recording]", states)
	}
	if got := f.wf.Status().State; got != types.StateRecording {
		t.Errorf("state = %s", got)
	}
}

func TestCloseStopsCapture(t *testing.T) {
	f := newFixture(time.Hour)
	ctx := context.Background()

	f.wf.Toggle(ctx)
	f.wf.Close(ctx)
	if f.capture.IsCapturing() {
		t.Error("Close should release the capture")
	}
}
