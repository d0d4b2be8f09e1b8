package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"unicode/utf8"

	"github.com/codebuildervaibhav/voice-clipboard/internal/config"
	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// GroqClient calls Groq's OpenAI-compatible transcription endpoint
type GroqClient struct {
	cfg        config.GroqSection
	httpClient *http.Client
}

// NewGroqClient creates a client. A nil httpClient gets a default one built
// from cfg.
func NewGroqClient(cfg config.GroqSection, httpClient *http.Client) *GroqClient {
	if httpClient == nil {
		httpClient = NewHTTPClient(secondsOrDefault(cfg.TimeoutSeconds, 60), cfg.EnableHTTP2)
	}
	return &GroqClient{cfg: cfg, httpClient: httpClient}
}

type groqResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
}

type groqError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe uploads blob and returns the text and reported duration.
// Missing fields in the response default to "" and 0.
func (g *GroqClient) Transcribe(ctx context.Context, blob types.AudioBlob) (types.TranscriptionResult, error) {
	if g.cfg.APIKey == "" {
		return types.TranscriptionResult{}, &types.TranscriptionError{Err: types.ErrMissingAPIKey}
	}

	body, contentType, err := g.buildForm(blob)
	if err != nil {
		return types.TranscriptionResult{}, &types.TranscriptionError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, body)
	if err != nil {
		return types.TranscriptionResult{}, &types.TranscriptionError{Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("User-Agent", "voice-clipboard/1.0")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return types.TranscriptionResult{}, &types.TranscriptionError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.TranscriptionResult{}, &types.TranscriptionError{Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return types.TranscriptionResult{}, &types.TranscriptionError{
			Err: fmt.Errorf("transcription API returned %d: %s", resp.StatusCode, errorMessage(respBody)),
		}
	}

	var parsed groqResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return types.TranscriptionResult{}, &types.TranscriptionError{Err: fmt.Errorf("decode response: %w", err)}
	}

	return types.TranscriptionResult{Text: parsed.Text, DurationSeconds: parsed.Duration}, nil
}

func (g *GroqClient) buildForm(blob types.AudioBlob) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filename := blob.Filename
	if filename == "" {
		filename = "audio.m4a"
	}
	mimeType := blob.MimeType
	if mimeType == "" {
		mimeType = MimeTypeFor(filename)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	h.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(blob.Data); err != nil {
		return nil, "", fmt.Errorf("copy audio: %w", err)
	}

	fields := [][2]string{
		{"model", g.cfg.Model},
		{"temperature", "0"},
		{"response_format", "verbose_json"},
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

// errorMessage extracts the provider's message or a truncated raw body
func errorMessage(b []byte) string {
	var e groqError
	if err := json.Unmarshal(b, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	if len(b) == 0 {
		return "<empty>"
	}
	const maxText = 1000
	if !utf8.Valid(b) {
		return fmt.Sprintf("<binary %d bytes>", len(b))
	}
	if len(b) > maxText {
		return fmt.Sprintf("%s... (truncated, total %d bytes)", b[:maxText], len(b))
	}
	return string(b)
}
