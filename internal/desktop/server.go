// Package desktop serves the local control surface of the desktop shell:
// status, toggle, a status websocket and the history routes.
package desktop

import (
	"log"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/voice-clipboard/internal/handlers"
	"github.com/codebuildervaibhav/voice-clipboard/internal/history"
	"github.com/codebuildervaibhav/voice-clipboard/internal/hotkey"
	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// StatusSource is the part of the workflow the server observes
type StatusSource interface {
	Status() types.Status
	Subscribe(fn func(types.Status)) func()
}

// StatusPayload is the wire form of a status: the raw state plus the state
// to display (success while the transient flag is set)
type StatusPayload struct {
	types.Status
	Display types.RecordingState `json:"display"`
}

func newPayload(st types.Status) StatusPayload {
	return StatusPayload{Status: st, Display: st.DisplayState()}
}

// Server is the desktop control server
type Server struct {
	app         *fiber.App
	source      StatusSource
	bridge      *hotkey.Bridge
	hub         *hub
	unsubscribe func()
}

// NewServer builds the control server. When apiKey is empty the routes are
// open, which is only suitable for a loopback listener.
func NewServer(apiKey string, source StatusSource, bridge *hotkey.Bridge, svc *history.Service) *Server {
	s := &Server{
		source: source,
		bridge: bridge,
		hub:    newHub(),
	}
	s.unsubscribe = source.Subscribe(s.hub.broadcast)

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, " + handlers.APIKeyHeader,
	}))

	app.Get("/api/health", handlers.Health)

	var protected []fiber.Handler
	if apiKey != "" {
		protected = append(protected, handlers.APIKeyAuth(apiKey))
	}

	api := app.Group("/api", protected...)
	api.Get("/status", s.status)
	api.Post("/toggle", s.toggle)
	if svc != nil {
		handlers.NewHistoryHandler(svc).Register(api.Group("/history"))
	}

	ws := app.Group("/ws", protected...)
	ws.Use(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	ws.Get("/status", websocket.New(s.streamStatus))

	s.app = app
	return s
}

// App exposes the Fiber app for tests and embedding
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown
func (s *Server) Listen(addr string) error {
	log.Printf("Control server listening on %s", addr)
	return s.app.Listen(addr)
}

// Serve serves on an existing listener until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops the server and detaches from the workflow
func (s *Server) Shutdown() error {
	s.unsubscribe()
	return s.app.Shutdown()
}

func (s *Server) status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    newPayload(s.source.Status()),
	})
}

// toggle hands one event to the hotkey bridge; the cycle runs asynchronously
func (s *Server) toggle(c *fiber.Ctx) error {
	if !s.bridge.Fire() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "No recording workflow is listening",
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
	})
}

func (s *Server) streamStatus(c *websocket.Conn) {
	defer c.Close()

	updates, remove := s.hub.add()
	defer remove()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := c.WriteJSON(newPayload(s.source.Status())); err != nil {
		return
	}

	for {
		select {
		case st := <-updates:
			if err := c.WriteJSON(newPayload(st)); err != nil {
				log.Printf("Status stream write error: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}
