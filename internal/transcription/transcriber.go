// Package transcription turns captured audio into text through a hosted
// speech-to-text API.
package transcription

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// Transcriber converts one audio blob into text plus its reported duration
type Transcriber interface {
	Transcribe(ctx context.Context, blob types.AudioBlob) (types.TranscriptionResult, error)
}

// NewHTTPClient builds a client with a shared, connection-reusing transport
func NewHTTPClient(timeout time.Duration, enableHTTP2 bool) *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if enableHTTP2 {
		_ = http2.ConfigureTransport(tr)
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}
}
