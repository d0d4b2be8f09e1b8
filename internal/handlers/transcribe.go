package handlers

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/voice-clipboard/internal/history"
	"github.com/codebuildervaibhav/voice-clipboard/internal/transcription"
	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// TranscribeHandler transcribes an uploaded audio file
type TranscribeHandler struct {
	transcriber transcription.Transcriber
	history     *history.Service
	now         func() time.Time
}

// NewTranscribeHandler creates a new transcribe handler
func NewTranscribeHandler(transcriber transcription.Transcriber, svc *history.Service) *TranscribeHandler {
	return &TranscribeHandler{
		transcriber: transcriber,
		history:     svc,
		now:         time.Now,
	}
}

// Handle processes POST /api/transcribe.
// Multipart field "audio"; query save defaults to true and is only false
// when present with a value other than "true".
func (h *TranscribeHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("audio")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No audio file provided",
		})
	}

	args := c.Context().QueryArgs()
	save := !args.Has("save") || string(args.Peek("save")) == "true"

	f, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}

	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = transcription.MimeTypeFor(file.Filename)
	}
	blob := types.AudioBlob{Data: data, MimeType: mimeType, Filename: file.Filename}

	ctx := c.UserContext()
	received := h.now()

	result, err := h.transcriber.Transcribe(ctx, blob)
	if err != nil {
		log.Printf("Transcription failed for %s (%d bytes): %v", file.Filename, len(data), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if save {
		if id, err := h.history.Save(ctx, result, received); err != nil {
			log.Printf("Failed to save transcription to history: %v", err)
		} else {
			log.Printf("Saved transcription %s (%.1fs)", id, result.DurationSeconds)
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}
