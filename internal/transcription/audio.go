package transcription

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

var mimeTypes = map[string]string{
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".webm": "audio/webm",
	".aac":  "audio/aac",
}

// MimeTypeFor guesses an audio MIME type from the file extension
func MimeTypeFor(filename string) string {
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return mt
	}
	return "application/octet-stream"
}

// Encoder converts a captured WAV into the upload codec (AAC in an m4a
// container). When ffmpeg is unavailable or fails the WAV is sent as is.
type Encoder struct {
	ffmpegPath string
	tempDir    string
}

// NewEncoder creates an encoder writing intermediate files to tempDir
func NewEncoder(ffmpegPath, tempDir string) *Encoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Encoder{ffmpegPath: ffmpegPath, tempDir: tempDir}
}

// Encode reads wavPath and returns the blob to upload
func (e *Encoder) Encode(ctx context.Context, wavPath string) (types.AudioBlob, error) {
	m4aPath := filepath.Join(e.tempDir, fmt.Sprintf("RecordTemp_%s.m4a", uuid.New().String()))
	defer os.Remove(m4aPath)

	if err := e.toM4A(ctx, wavPath, m4aPath); err == nil {
		if data, err := os.ReadFile(m4aPath); err == nil {
			return types.AudioBlob{Data: data, MimeType: "audio/mp4", Filename: "audio.m4a"}, nil
		}
	} else {
		log.Printf("m4a encoding unavailable, sending WAV: %v", err)
	}

	data, err := os.ReadFile(wavPath)
	if err != nil {
		return types.AudioBlob{}, fmt.Errorf("read capture: %w", err)
	}
	return types.AudioBlob{Data: data, MimeType: "audio/wav", Filename: "audio.wav"}, nil
}

func (e *Encoder) toM4A(ctx context.Context, inPath, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.ffmpegPath,
		"-y",
		"-i", inPath,
		"-ac", "1",
		"-c:a", "aac",
		"-b:a", "64k",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %v\n%s", err, stderr.String())
	}
	return nil
}

func secondsOrDefault(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
