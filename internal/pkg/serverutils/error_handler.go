package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrNotFound is returned by services for missing resources and rendered as 404.
var ErrNotFound = errors.New("resource not found")

// ErrorHandlerMiddleware converts errors returned by downstream handlers into the JSON envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code, message := classify(err)
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

// FiberErrorHandler is the same mapping for errors fiber raises itself (404 routes, body limits).
func FiberErrorHandler(ctx *fiber.Ctx, err error) error {
	code, message := classify(err)
	return ctx.Status(code).JSON(ErrorResponse(code, message))
}

func classify(err error) (int, string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return fiber.StatusBadRequest, validationErr.Error()
	}

	if errors.Is(err, ErrNotFound) {
		return fiber.StatusNotFound, err.Error()
	}

	return fiber.StatusInternalServerError, err.Error()
}
