package middleware

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"movie-discovery-recommender/internal/metrics"
)

// Metrics counts requests by method, matched route and status code.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		// Route pattern, not the raw path.
		metrics.HTTPRequestsTotal.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).Inc()
		return err
	}
}
