package handler

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"movie-discovery-recommender/internal/service"
	"movie-discovery-recommender/internal/tmdb"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// respondError maps service and catalog errors to HTTP statuses. Anything
// unrecognized is logged and reported as "failed to <action>".
func respondError(c fiber.Ctx, err error, action string) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:  "invalid request",
			Fields: ve.Fields,
		})
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "not found"})
	case errors.Is(err, service.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "already exists"})
	case errors.Is(err, tmdb.ErrUnavailable), errors.Is(err, tmdb.ErrRateLimited):
		slog.Warn("catalog unavailable", "action", action, "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "movie catalog temporarily unavailable"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusGatewayTimeout).JSON(ErrorResponse{Error: "request timed out"})
	}

	slog.Error("failed to "+action, "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: "failed to " + action,
	})
}

func badRequest(c fiber.Ctx, field, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:  "invalid request",
		Fields: map[string]string{field: message},
	})
}

// queryInt reads an optional integer query parameter. ok is false when the
// parameter is present but not an integer.
func queryInt(c fiber.Ctx, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
