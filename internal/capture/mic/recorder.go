// Package mic captures the default input device with PortAudio and streams
// it to a temporary WAV file.
package mic

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

const framesPerBuffer = 1024

// maxReadErrors consecutive failed reads end the session as a lost device
const maxReadErrors = 20

// TempPrefix starts the name of every capture file
const TempPrefix = "RecordTemp_"

// Encoder turns the finished WAV into the blob handed to the transcriber
type Encoder interface {
	Encode(ctx context.Context, wavPath string) (types.AudioBlob, error)
}

type result struct {
	wavPath string
	err     error
}

// Recorder implements capture.Capture on top of PortAudio
type Recorder struct {
	sampleRate int
	channels   int
	tempDir    string
	encoder    Encoder

	mu        sync.Mutex
	capturing bool
	stop      chan struct{}
	done      chan result
}

// New creates a recorder writing WAV files to tempDir
func New(sampleRate, channels int, tempDir string, encoder Encoder) *Recorder {
	return &Recorder{
		sampleRate: sampleRate,
		channels:   channels,
		tempDir:    tempDir,
		encoder:    encoder,
	}
}

// StartCapture opens the default input stream. Device and permission errors
// are reported here rather than at stop time.
func (r *Recorder) StartCapture(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capturing {
		return &types.CaptureError{Op: "start", Err: types.ErrAlreadyCapturing}
	}

	if err := portaudio.Initialize(); err != nil {
		return &types.CaptureError{Op: "start", Err: fmt.Errorf("portaudio init failed: %w", err)}
	}

	in := make([]int16, framesPerBuffer*r.channels)
	stream, err := portaudio.OpenDefaultStream(r.channels, 0, float64(r.sampleRate), framesPerBuffer, in)
	if err != nil {
		portaudio.Terminate()
		return &types.CaptureError{Op: "start", Err: fmt.Errorf("open stream failed: %w", err)}
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return &types.CaptureError{Op: "start", Err: fmt.Errorf("start stream failed: %w", err)}
	}

	wavPath := r.tempPath()
	file, err := os.Create(wavPath)
	if err != nil {
		stream.Stop()
		stream.Close()
		portaudio.Terminate()
		return &types.CaptureError{Op: "start", Err: fmt.Errorf("create wav failed: %w", err)}
	}

	r.capturing = true
	r.stop = make(chan struct{})
	r.done = make(chan result, 1)
	go r.recordLoop(stream, in, file, wavPath, r.stop, r.done)

	log.Printf("Recording to %s", wavPath)
	return nil
}

// StopCapture ends the session and returns the encoded audio
func (r *Recorder) StopCapture(ctx context.Context) (types.AudioBlob, error) {
	r.mu.Lock()
	if !r.capturing {
		r.mu.Unlock()
		return types.AudioBlob{}, &types.CaptureError{Op: "stop", Err: types.ErrNotCapturing}
	}
	r.capturing = false
	close(r.stop)
	done := r.done
	r.mu.Unlock()

	res := <-done
	if res.wavPath != "" {
		defer os.Remove(res.wavPath)
	}
	if res.err != nil {
		return types.AudioBlob{}, &types.CaptureError{Op: "stop", Err: res.err}
	}

	blob, err := r.encoder.Encode(ctx, res.wavPath)
	if err != nil {
		return types.AudioBlob{}, &types.CaptureError{Op: "encode", Err: err}
	}
	return blob, nil
}

// IsCapturing reports whether a session is open
func (r *Recorder) IsCapturing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capturing
}

func (r *Recorder) recordLoop(stream *portaudio.Stream, in []int16, file *os.File, wavPath string, stop <-chan struct{}, done chan<- result) {
	enc := wav.NewEncoder(file, r.sampleRate, 16, r.channels, 1)
	format := &audio.Format{NumChannels: r.channels, SampleRate: r.sampleRate}
	intBuf := make([]int, len(in))

	var (
		loopErr error
		guard   readGuard
	)
loop:
	for {
		select {
		case <-stop:
			break loop
		default:
		}

		usable, err := guard.check(stream.Read())
		if err != nil {
			loopErr = err
			break
		}
		if !usable {
			continue
		}
		for i, v := range in {
			intBuf[i] = int(v)
		}
		buf := &audio.IntBuffer{Format: format, Data: intBuf, SourceBitDepth: 16}
		if err := enc.Write(buf); err != nil {
			loopErr = fmt.Errorf("wav write failed: %w", err)
			break
		}
	}

	stream.Stop()
	stream.Close()
	portaudio.Terminate()

	if err := enc.Close(); err != nil && loopErr == nil {
		loopErr = fmt.Errorf("wav close failed: %w", err)
	}
	file.Close()

	done <- result{wavPath: wavPath, err: loopErr}
}

// readGuard tracks consecutive stream read failures. An input overflow still
// fills the buffer and counts as a good read.
type readGuard struct {
	failures int
}

// check reports whether the last read filled the buffer, and returns an
// error once maxReadErrors reads in a row have failed
func (g *readGuard) check(err error) (bool, error) {
	if err == nil || errors.Is(err, portaudio.InputOverflowed) {
		g.failures = 0
		return true, nil
	}
	g.failures++
	if g.failures >= maxReadErrors {
		return false, fmt.Errorf("input device lost after %d failed reads: %w", g.failures, err)
	}
	return false, nil
}

func (r *Recorder) tempPath() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	dir := r.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, TempPrefix+id+".wav")
}
