// Package handlers exposes transcription and history over HTTP.
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/codebuildervaibhav/voice-clipboard/internal/history"
	"github.com/codebuildervaibhav/voice-clipboard/internal/transcription"
)

// Version is reported by the health route
const Version = "1.0.0"

// Deps wires the backend routes
type Deps struct {
	APIKey      string
	BodyLimitMB int
	Transcriber transcription.Transcriber
	History     *history.Service
	// Logs is optional; /api/logs is only mounted when set
	Logs *LogBuffer
	// AccessLog enables the request logger middleware
	AccessLog bool
}

// NewApp builds the backend Fiber app
func NewApp(d Deps) *fiber.App {
	bodyLimit := d.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = 25
	}

	app := fiber.New(fiber.Config{
		BodyLimit:             bodyLimit * 1024 * 1024,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if d.AccessLog {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, " + APIKeyHeader,
	}))

	app.Get("/api/health", Health)

	api := app.Group("/api", APIKeyAuth(d.APIKey))
	api.Post("/transcribe", NewTranscribeHandler(d.Transcriber, d.History).Handle)
	NewHistoryHandler(d.History).Register(api.Group("/history"))
	if d.Logs != nil {
		api.Get("/logs", d.Logs.Logs)
	}

	return app
}

// Health handles GET /api/health
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"version": Version,
	})
}
