package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"movie-discovery-recommender/internal/models"
)

// Preferences reads and replaces a user's taste filters.
type Preferences interface {
	Get(ctx context.Context, userID int) (*models.UserPreference, error)
	Set(ctx context.Context, userID int, req models.SetPreferenceRequest) (*models.UserPreference, error)
}

type PreferenceHandler struct {
	prefs Preferences
}

func NewPreferenceHandler(prefs Preferences) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs}
}

func (h *PreferenceHandler) Register(api fiber.Router) {
	api.Get("/users/:id/preferences", h.GetPreference)
	api.Put("/users/:id/preferences", h.SetPreference)
}

// GetPreference godoc
// GET /api/v1/users/:id/preferences
func (h *PreferenceHandler) GetPreference(c fiber.Ctx) error {
	pref, err := h.prefs.Get(c.Context(), fiber.Params[int](c, "id"))
	if err != nil {
		return respondError(c, err, "load preferences")
	}
	return c.JSON(pref)
}

// SetPreference godoc
// PUT /api/v1/users/:id/preferences
func (h *PreferenceHandler) SetPreference(c fiber.Ctx) error {
	var req models.SetPreferenceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	pref, err := h.prefs.Set(c.Context(), fiber.Params[int](c, "id"), req)
	if err != nil {
		return respondError(c, err, "save preferences")
	}
	return c.JSON(pref)
}
