package handler

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"movie-discovery-recommender/internal/models"
	"movie-discovery-recommender/internal/service"
)

// Recommendations is the recommendation use-case surface.
type Recommendations interface {
	GetRecommendations(ctx context.Context, userID int, req service.RecommendationRequest) (*models.RecommendationResponse, error)
	ClearCache(ctx context.Context, userID int) (int, error)
	RecordFeedback(ctx context.Context, userID int, req models.FeedbackRequest) (*models.RecommendationFeedback, bool, error)
	Analytics(ctx context.Context, userID int) (*models.RecommendationAnalytics, error)
}

// Settings reads and updates per-user recommendation settings.
type Settings interface {
	GetOrCreate(ctx context.Context, userID int) (*models.RecommendationSettings, error)
	Update(ctx context.Context, userID int, upd models.SettingsUpdate) (*models.RecommendationSettings, error)
}

// SimilarUsers lists stored user similarities.
type SimilarUsers interface {
	SimilarUsers(ctx context.Context, userID int) ([]models.UserSimilarity, error)
}

type RecommendationHandler struct {
	recs     Recommendations
	settings Settings
	similar  SimilarUsers
}

func NewRecommendationHandler(recs Recommendations, settings Settings, similar SimilarUsers) *RecommendationHandler {
	return &RecommendationHandler{recs: recs, settings: settings, similar: similar}
}

// Register mounts the per-user recommendation routes.
func (h *RecommendationHandler) Register(api fiber.Router) {
	users := api.Group("/users/:id")
	users.Get("/recommendations", h.GetRecommendations)
	users.Delete("/recommendations/cache", h.ClearCache)
	users.Post("/recommendations/feedback", h.RecordFeedback)
	users.Get("/recommendations/analytics", h.Analytics)
	users.Get("/recommendation-settings", h.GetSettings)
	users.Patch("/recommendation-settings", h.UpdateSettings)
	users.Get("/similar-users", h.SimilarUsers)
}

// GetRecommendations godoc
// GET /api/v1/users/:id/recommendations?type=&limit=&force_refresh=
func (h *RecommendationHandler) GetRecommendations(c fiber.Ctx) error {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return badRequest(c, "limit", "must be an integer")
	}
	if c.Query("limit") != "" && limit == 0 {
		return badRequest(c, "limit", "must be between 1 and 100")
	}
	forceRefresh := false
	if raw := c.Query("force_refresh"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "force_refresh", "must be a boolean")
		}
		forceRefresh = v
	}

	resp, err := h.recs.GetRecommendations(c.Context(), fiber.Params[int](c, "id"), service.RecommendationRequest{
		Type:         c.Query("type"),
		Limit:        limit,
		ForceRefresh: forceRefresh,
	})
	if err != nil {
		return respondError(c, err, "generate recommendations")
	}
	return c.JSON(resp)
}

// ClearCache godoc
// DELETE /api/v1/users/:id/recommendations/cache
func (h *RecommendationHandler) ClearCache(c fiber.Ctx) error {
	n, err := h.recs.ClearCache(c.Context(), fiber.Params[int](c, "id"))
	if err != nil {
		return respondError(c, err, "clear recommendation cache")
	}
	return c.JSON(fiber.Map{"deleted": n})
}

// RecordFeedback godoc
// POST /api/v1/users/:id/recommendations/feedback
func (h *RecommendationHandler) RecordFeedback(c fiber.Ctx) error {
	var req models.FeedbackRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	fb, created, err := h.recs.RecordFeedback(c.Context(), fiber.Params[int](c, "id"), req)
	if err != nil {
		return respondError(c, err, "record feedback")
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fb)
}

// Analytics godoc
// GET /api/v1/users/:id/recommendations/analytics
func (h *RecommendationHandler) Analytics(c fiber.Ctx) error {
	a, err := h.recs.Analytics(c.Context(), fiber.Params[int](c, "id"))
	if err != nil {
		return respondError(c, err, "load recommendation analytics")
	}
	return c.JSON(a)
}

// GetSettings godoc
// GET /api/v1/users/:id/recommendation-settings
func (h *RecommendationHandler) GetSettings(c fiber.Ctx) error {
	s, err := h.settings.GetOrCreate(c.Context(), fiber.Params[int](c, "id"))
	if err != nil {
		return respondError(c, err, "load recommendation settings")
	}
	return c.JSON(s)
}

// UpdateSettings godoc
// PATCH /api/v1/users/:id/recommendation-settings
func (h *RecommendationHandler) UpdateSettings(c fiber.Ctx) error {
	var upd models.SettingsUpdate
	if err := c.Bind().JSON(&upd); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	s, err := h.settings.Update(c.Context(), fiber.Params[int](c, "id"), upd)
	if err != nil {
		return respondError(c, err, "update recommendation settings")
	}
	return c.JSON(s)
}

// SimilarUsers godoc
// GET /api/v1/users/:id/similar-users
func (h *RecommendationHandler) SimilarUsers(c fiber.Ctx) error {
	userID := fiber.Params[int](c, "id")
	sims, err := h.similar.SimilarUsers(c.Context(), userID)
	if err != nil {
		return respondError(c, err, "load similar users")
	}
	return c.JSON(fiber.Map{
		"user_id":       userID,
		"similar_users": sims,
	})
}
