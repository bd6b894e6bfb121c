package handler

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"movie-discovery-recommender/internal/models"
)

// Interactions records favorites and viewings.
type Interactions interface {
	AddFavorite(ctx context.Context, userID int, req models.AddFavoriteRequest) (*models.Favorite, error)
	RemoveFavorite(ctx context.Context, userID, movieID int) error
	ListFavorites(ctx context.Context, userID int) ([]models.Favorite, error)
	RecordViewing(ctx context.Context, userID int, req models.WatchRequest, upsert bool) (*models.ViewingHistoryEntry, error)
	ListHistory(ctx context.Context, userID, limit int) ([]models.ViewingHistoryEntry, error)
}

// InteractionHandler handles favorites and viewing history.
type InteractionHandler struct {
	svc Interactions
}

// NewInteractionHandler creates a new InteractionHandler.
func NewInteractionHandler(svc Interactions) *InteractionHandler {
	return &InteractionHandler{svc: svc}
}

func (h *InteractionHandler) Register(api fiber.Router) {
	users := api.Group("/users/:id")
	users.Post("/favorites", h.AddFavorite)
	users.Get("/favorites", h.ListFavorites)
	users.Delete("/favorites/:movieId", h.RemoveFavorite)
	users.Post("/history", h.RecordViewing)
	users.Get("/history", h.ListHistory)
}

// AddFavorite marks a movie as favorite.
// @Summary Add favorite
// @Tags interactions
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param body body models.AddFavoriteRequest true "Movie to favorite"
// @Success 201 {object} models.Favorite
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users/{id}/favorites [post]
func (h *InteractionHandler) AddFavorite(c fiber.Ctx) error {
	var req models.AddFavoriteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	fav, err := h.svc.AddFavorite(c.Context(), fiber.Params[int](c, "id"), req)
	if err != nil {
		return respondError(c, err, "add favorite")
	}
	return c.Status(fiber.StatusCreated).JSON(fav)
}

// RemoveFavorite unmarks a favorite.
// @Summary Remove favorite
// @Tags interactions
// @Param id path int true "User ID"
// @Param movieId path int true "Movie ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /users/{id}/favorites/{movieId} [delete]
func (h *InteractionHandler) RemoveFavorite(c fiber.Ctx) error {
	err := h.svc.RemoveFavorite(c.Context(), fiber.Params[int](c, "id"), fiber.Params[int](c, "movieId"))
	if err != nil {
		return respondError(c, err, "remove favorite")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListFavorites returns the user's favorites, newest first.
// @Summary List favorites
// @Tags interactions
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]interface{}
// @Router /users/{id}/favorites [get]
func (h *InteractionHandler) ListFavorites(c fiber.Ctx) error {
	userID := fiber.Params[int](c, "id")
	favorites, err := h.svc.ListFavorites(c.Context(), userID)
	if err != nil {
		return respondError(c, err, "list favorites")
	}
	return c.JSON(fiber.Map{
		"user_id":   userID,
		"favorites": favorites,
		"total":     len(favorites),
	})
}

// RecordViewing appends a viewing; with upsert=true the latest viewing of
// the same movie is updated instead.
// @Summary Record viewing
// @Tags interactions
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param upsert query bool false "Update the latest viewing of the movie"
// @Param body body models.WatchRequest true "Viewing"
// @Success 201 {object} models.ViewingHistoryEntry
// @Failure 400 {object} ErrorResponse
// @Router /users/{id}/history [post]
func (h *InteractionHandler) RecordViewing(c fiber.Ctx) error {
	upsert := false
	if raw := c.Query("upsert"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "upsert", "must be a boolean")
		}
		upsert = v
	}

	var req models.WatchRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	entry, err := h.svc.RecordViewing(c.Context(), fiber.Params[int](c, "id"), req, upsert)
	if err != nil {
		return respondError(c, err, "record viewing")
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// ListHistory returns the user's viewings, newest first.
// @Summary List viewing history
// @Tags interactions
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Max entries" default(50)
// @Success 200 {object} map[string]interface{}
// @Router /users/{id}/history [get]
func (h *InteractionHandler) ListHistory(c fiber.Ctx) error {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return badRequest(c, "limit", "must be an integer")
	}
	userID := fiber.Params[int](c, "id")
	history, err := h.svc.ListHistory(c.Context(), userID, limit)
	if err != nil {
		return respondError(c, err, "list viewing history")
	}
	return c.JSON(fiber.Map{
		"user_id": userID,
		"history": history,
		"total":   len(history),
	})
}
