package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/voice-clipboard/internal/history"
	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// HistoryHandler serves the day-bucketed history
type HistoryHandler struct {
	svc *history.Service
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(svc *history.Service) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

// Register mounts the history routes on r. /days is registered before /:date.
func (h *HistoryHandler) Register(r fiber.Router) {
	r.Get("/days", h.Days)
	r.Get("/:date", h.ByDate)
	r.Post("/", h.Add)
}

// Days handles GET /history/days
func (h *HistoryHandler) Days(c *fiber.Ctx) error {
	days, err := h.svc.ListDays(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    days,
	})
}

// ByDate handles GET /history/:date
func (h *HistoryHandler) ByDate(c *fiber.Ctx) error {
	records, err := h.svc.ListByDate(c.UserContext(), c.Params("date"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    records,
	})
}

// Add handles POST /history
func (h *HistoryHandler) Add(c *fiber.Ctx) error {
	var req history.AddRequest
	if err := c.BodyParser(&req); err != nil {
		return &types.ValidationError{Message: "Invalid request body"}
	}

	id, err := h.svc.Add(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"id": id},
	})
}
