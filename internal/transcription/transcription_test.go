package transcription

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/codebuildervaibhav/voice-clipboard/internal/config"
	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

func testConfig(endpoint string) config.GroqSection {
	return config.GroqSection{
		APIKey:   "test-api-key",
		Endpoint: endpoint,
		Model:    "whisper-large-v3-turbo",
	}
}

func TestGroqTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-api-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if r.FormValue("model") != "whisper-large-v3-turbo" ||
			r.FormValue("temperature") != "0" ||
			r.FormValue("response_format") != "verbose_json" {
			t.Errorf("unexpected form values %v", r.MultipartForm.Value)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "audio-bytes" {
			t.Errorf("uploaded %q", data)
		}
		if header.Filename != "audio.m4a" || header.Header.Get("Content-Type") != "audio/mp4" {
			t.Errorf("unexpected part header %v", header.Header)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"Hello world","duration":2.5,"language":"en"}`))
	}))
	defer server.Close()

	client := NewGroqClient(testConfig(server.URL), server.Client())
	result, err := client.Transcribe(context.Background(), types.AudioBlob{Data: []byte("audio-bytes")})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "Hello world" || result.DurationSeconds != 2.5 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestGroqTranscribeDefaultsMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewGroqClient(testConfig(server.URL), server.Client())
	result, err := client.Transcribe(context.Background(), types.AudioBlob{Data: []byte("x")})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "" || result.DurationSeconds != 0 {
		t.Errorf("expected zero result, got %+v", result)
	}
}

func TestGroqTranscribeMissingKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.APIKey = ""
	_, err := NewGroqClient(cfg, server.Client()).Transcribe(context.Background(), types.AudioBlob{})

	var te *types.TranscriptionError
	if !errors.As(err, &te) || !errors.Is(err, types.ErrMissingAPIKey) {
		t.Fatalf("expected TranscriptionError wrapping ErrMissingAPIKey, got %v", err)
	}
	if !strings.Contains(err.Error(), "GROQ_API_KEY is not set") {
		t.Errorf("unexpected message %q", err.Error())
	}
	if called {
		t.Error("no request should be sent without a key")
	}
}

func TestGroqTranscribeAPIError(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"provider message", http.StatusUnauthorized, `{"error":{"message":"Invalid API Key"}}`, "Invalid API Key"},
		{"raw body", http.StatusBadGateway, "upstream down", "upstream down"},
		{"empty body", http.StatusInternalServerError, "", "<empty>"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := NewGroqClient(testConfig(server.URL), server.Client()).
				Transcribe(context.Background(), types.AudioBlob{Data: []byte("x")})

			var te *types.TranscriptionError
			if !errors.As(err, &te) {
				t.Fatalf("expected TranscriptionError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tc.message) {
				t.Errorf("error %q does not contain %q", err.Error(), tc.message)
			}
		})
	}
}

func TestGroqTranscribeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewGroqClient(testConfig(server.URL), &http.Client{Timeout: 20 * time.Millisecond})
	_, err := client.Transcribe(context.Background(), types.AudioBlob{Data: []byte("x")})
	var te *types.TranscriptionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TranscriptionError, got %v", err)
	}
}

func TestEncoderFallsBackToWAV(t *testing.T) {
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "RecordTemp_test.wav")
	if err := os.WriteFile(wavPath, []byte("RIFF-data"), 0644); err != nil {
		t.Fatal(err)
	}

	enc := NewEncoder(filepath.Join(dir, "no-such-ffmpeg"), dir)
	blob, err := enc.Encode(context.Background(), wavPath)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if blob.MimeType != "audio/wav" || blob.Filename != "audio.wav" || !bytes.Equal(blob.Data, []byte("RIFF-data")) {
		t.Errorf("unexpected fallback blob %+v", blob)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("intermediate files left behind: %v", entries)
	}
}

func TestEncoderMissingInput(t *testing.T) {
	dir := t.TempDir()
	enc := NewEncoder(filepath.Join(dir, "no-such-ffmpeg"), dir)
	if _, err := enc.Encode(context.Background(), filepath.Join(dir, "missing.wav")); err == nil {
		t.Fatal("expected error for missing capture file")
	}
}

func TestMimeTypeFor(t *testing.T) {
	testCases := map[string]string{
		"audio.m4a":  "audio/mp4",
		"clip.WAV":   "audio/wav",
		"voice.webm": "audio/webm",
		"memo.mp3":   "audio/mpeg",
		"notes.txt":  "application/octet-stream",
		"noext":      "application/octet-stream",
	}
	for name, want := range testCases {
		if got := MimeTypeFor(name); got != want {
			t.Errorf("MimeTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}
