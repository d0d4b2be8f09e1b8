// Package apiclient talks to a remote voice clipboard backend. It lets the
// desktop shell use the backend for transcription and history instead of
// local credentials and storage.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/codebuildervaibhav/voice-clipboard/internal/handlers"
	"github.com/codebuildervaibhav/voice-clipboard/internal/transcription"
	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// Client is an authenticated backend client. It implements both
// transcription.Transcriber and history.Store.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu        sync.RWMutex
	connected bool
}

// New creates a client for baseURL. A nil httpClient gets a default one.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = transcription.NewHTTPClient(90*time.Second, true)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// envelope is the backend's response shape
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// statusError is a non-2xx backend answer
type statusError struct {
	Code    int
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set(handlers.APIKeyHeader, c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &statusError{Code: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// Health calls GET /api/health, which needs no key
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend health returned %d", resp.StatusCode)
	}
	return nil
}

// Transcribe uploads blob to POST /api/transcribe. The backend does not save
// the result; the desktop workflow persists it itself.
func (c *Client) Transcribe(ctx context.Context, blob types.AudioBlob) (types.TranscriptionResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filename := blob.Filename
	if filename == "" {
		filename = "audio.m4a"
	}
	mimeType := blob.MimeType
	if mimeType == "" {
		mimeType = transcription.MimeTypeFor(filename)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="%s"`, strings.ReplaceAll(filename, `"`, `\"`)))
	h.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(h)
	if err != nil {
		return types.TranscriptionResult{}, &types.TranscriptionError{Err: err}
	}
	if _, err := part.Write(blob.Data); err != nil {
		return types.TranscriptionResult{}, &types.TranscriptionError{Err: err}
	}
	if err := writer.Close(); err != nil {
		return types.TranscriptionResult{}, &types.TranscriptionError{Err: err}
	}

	var result types.TranscriptionResult
	if err := c.do(ctx, http.MethodPost, "/api/transcribe?save=false", body, writer.FormDataContentType(), &result); err != nil {
		return types.TranscriptionResult{}, &types.TranscriptionError{Err: err}
	}
	return result, nil
}

// Connect checks that the backend answers. Store calls fail until it succeeds.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.Health(ctx); err != nil {
		return &types.PersistenceError{Op: "connect", Err: err}
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return nil
}

// Disconnect marks the client disconnected
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return nil
}

func (c *Client) ready(op string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return &types.PersistenceError{Op: op, Err: types.ErrNotConnected}
	}
	return nil
}

// storeError keeps backend validation failures recognizable as such
func storeError(op string, err error) error {
	if se, ok := err.(*statusError); ok && se.Code == http.StatusBadRequest {
		return &types.ValidationError{Message: se.Message}
	}
	return &types.PersistenceError{Op: op, Err: err}
}

type addBody struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"durationSeconds"`
	Timestamp       string  `json:"timestamp"`
	Date            string  `json:"date,omitempty"`
}

// Insert posts rec to POST /api/history. The backend derives cost and
// assigns the id. The backend rejects empty text, so a silent recording is
// skipped and reported with an empty id.
func (c *Client) Insert(ctx context.Context, rec types.Record) (string, error) {
	if err := c.ready("insert"); err != nil {
		return "", err
	}
	if rec.Text == "" {
		log.Println("Skipping history save of an empty transcription")
		return "", nil
	}

	payload, err := json.Marshal(addBody{
		Text:            rec.Text,
		DurationSeconds: rec.DurationSeconds,
		Timestamp:       rec.Timestamp.UTC().Format(time.RFC3339Nano),
		Date:            rec.Date,
	})
	if err != nil {
		return "", &types.PersistenceError{Op: "insert", Err: err}
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/history", bytes.NewReader(payload), "application/json", &out); err != nil {
		return "", storeError("insert", err)
	}
	return out.ID, nil
}

// AggregateByDate calls GET /api/history/days
func (c *Client) AggregateByDate(ctx context.Context) ([]types.HistoryDay, error) {
	if err := c.ready("aggregate"); err != nil {
		return nil, err
	}
	days := []types.HistoryDay{}
	if err := c.do(ctx, http.MethodGet, "/api/history/days", nil, "", &days); err != nil {
		return nil, storeError("aggregate", err)
	}
	return days, nil
}

// QueryByDate calls GET /api/history/:date
func (c *Client) QueryByDate(ctx context.Context, date string) ([]types.Record, error) {
	if err := c.ready("query"); err != nil {
		return nil, err
	}
	records := []types.Record{}
	if err := c.do(ctx, http.MethodGet, "/api/history/"+url.PathEscape(date), nil, "", &records); err != nil {
		return nil, storeError("query", err)
	}
	return records, nil
}
