package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"hitokoto/internal/corpus"
	"hitokoto/internal/db"
)

// jsonSuccess returns a 200 response with data wrapped in the standard envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonError returns an error response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}

// statusFor maps an error from the sampling path to an HTTP status and a
// message safe to show callers.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, corpus.ErrInvalidRange):
		return fiber.StatusBadRequest, "min_length must not exceed max_length"
	case errors.Is(err, corpus.ErrRangeUnsatisfiable):
		return fiber.StatusNotFound, "No hitokoto found in the requested length range"
	case errors.Is(err, db.ErrQuoteNotFound):
		return fiber.StatusNotFound, "No hitokoto found"
	case db.IsConnectionError(err):
		return fiber.StatusServiceUnavailable, "Service Unavailable"
	default:
		return fiber.StatusInternalServerError, "Internal Server Error"
	}
}

// respondError writes the response for err, logging server-side failures.
func respondError(c fiber.Ctx, err error) error {
	status, message := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "status", status, "error", err)
	}
	return jsonError(c, status, message)
}
