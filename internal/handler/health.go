package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// Health reports service status. Any failing check turns the answer into
// a 503 with the failing dependency marked "down".
func Health(service string, checks map[string]CheckFunc) fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = "down"
				status = "degraded"
				continue
			}
			results[name] = "up"
		}

		code := fiber.StatusOK
		if status != "ok" {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":  status,
			"service": service,
			"checks":  results,
		})
	}
}
