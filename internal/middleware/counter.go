package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"hitokoto/internal/stats"
)

// CountRequests records every request that reaches it in counter. A failing
// counter backend is logged and never fails the request.
func CountRequests(counter stats.Counter) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := counter.Increment(c.Context()); err != nil {
			slog.Warn("failed to count request", "path", c.Path(), "error", err)
		}
		return c.Next()
	}
}
