package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// ErrorHandler renders every error as {"error": message}. Validation errors
// are 400, Fiber errors keep their code, everything else is 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var ve *types.ValidationError
	var fe *fiber.Error
	switch {
	case errors.As(err, &ve):
		code = fiber.StatusBadRequest
	case errors.As(err, &fe):
		code = fe.Code
	}

	if code >= fiber.StatusInternalServerError {
		log.Printf("ERROR %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
