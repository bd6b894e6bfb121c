package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"movie-discovery-recommender/internal/models"
)

// Movies is the validated catalog read surface.
type Movies interface {
	Trending(ctx context.Context, window string, page int) (*models.MoviePage, error)
	Popular(ctx context.Context, page int) (*models.MoviePage, error)
	Search(ctx context.Context, query string, page, year int) (*models.MoviePage, error)
	Discover(ctx context.Context, p models.DiscoverParams) (*models.MoviePage, error)
	Details(ctx context.Context, id int) (*models.Movie, error)
	Recommendations(ctx context.Context, id, page int) (*models.MoviePage, error)
	Similar(ctx context.Context, id, page int) (*models.MoviePage, error)
	Genres(ctx context.Context) ([]models.Genre, error)
}

// SimilarMovies lists stored movie similarities.
type SimilarMovies interface {
	SimilarMovies(ctx context.Context, movieID int) ([]models.MovieSimilarity, error)
}

// MovieHandler proxies catalog reads.
type MovieHandler struct {
	movies  Movies
	similar SimilarMovies
}

// NewMovieHandler creates a new MovieHandler.
func NewMovieHandler(movies Movies, similar SimilarMovies) *MovieHandler {
	return &MovieHandler{movies: movies, similar: similar}
}

func (h *MovieHandler) Register(api fiber.Router) {
	api.Get("/genres", h.Genres)

	movies := api.Group("/movies")
	movies.Get("/trending", h.Trending)
	movies.Get("/popular", h.Popular)
	movies.Get("/search", h.Search)
	movies.Get("/discover", h.Discover)
	movies.Get("/:id", h.Details)
	movies.Get("/:id/recommendations", h.Recommendations)
	movies.Get("/:id/similar", h.Similar)
	movies.Get("/:id/similar-stored", h.SimilarStored)
}

// Trending returns trending movies.
// @Summary Trending movies
// @Tags movies
// @Produce json
// @Param window query string false "Time window" Enums(day,week) default(day)
// @Param page query int false "Page number" default(1)
// @Success 200 {object} models.MoviePage
// @Failure 503 {object} ErrorResponse
// @Router /movies/trending [get]
func (h *MovieHandler) Trending(c fiber.Ctx) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "page", "must be an integer")
	}
	result, err := h.movies.Trending(c.Context(), c.Query("window", "day"), page)
	if err != nil {
		return respondError(c, err, "retrieve trending movies")
	}
	return c.JSON(result)
}

// Popular returns popular movies.
// @Summary Popular movies
// @Tags movies
// @Produce json
// @Param page query int false "Page number" default(1)
// @Success 200 {object} models.MoviePage
// @Router /movies/popular [get]
func (h *MovieHandler) Popular(c fiber.Ctx) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "page", "must be an integer")
	}
	result, err := h.movies.Popular(c.Context(), page)
	if err != nil {
		return respondError(c, err, "retrieve popular movies")
	}
	return c.JSON(result)
}

// Search finds movies by title.
// @Summary Search movies
// @Tags movies
// @Produce json
// @Param query query string true "Search text"
// @Param year query int false "Release year"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} models.MoviePage
// @Failure 400 {object} ErrorResponse
// @Router /movies/search [get]
func (h *MovieHandler) Search(c fiber.Ctx) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "page", "must be an integer")
	}
	year, ok := queryInt(c, "year", 0)
	if !ok {
		return badRequest(c, "year", "must be an integer")
	}
	result, err := h.movies.Search(c.Context(), c.Query("query"), page, year)
	if err != nil {
		return respondError(c, err, "search movies")
	}
	return c.JSON(result)
}

// Discover filters the catalog.
// @Summary Discover movies
// @Tags movies
// @Produce json
// @Param genres query string false "Comma separated genre ids"
// @Param sort_by query string false "Sort order" default(popularity.desc)
// @Param min_vote_average query number false "Minimum vote average"
// @Param min_vote_count query int false "Minimum vote count"
// @Param year query int false "Release year"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} models.MoviePage
// @Failure 400 {object} ErrorResponse
// @Router /movies/discover [get]
func (h *MovieHandler) Discover(c fiber.Ctx) error {
	p := models.DiscoverParams{SortBy: c.Query("sort_by", "popularity.desc")}

	if raw := strings.TrimSpace(c.Query("genres")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || id <= 0 {
				return badRequest(c, "genres", "must be a comma separated list of genre ids")
			}
			p.GenreIDs = append(p.GenreIDs, id)
		}
	}
	if raw := c.Query("min_vote_average"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return badRequest(c, "min_vote_average", "must be a number")
		}
		p.MinVoteAverage = v
	}

	var ok bool
	if p.MinVoteCount, ok = queryInt(c, "min_vote_count", 0); !ok {
		return badRequest(c, "min_vote_count", "must be an integer")
	}
	if p.Year, ok = queryInt(c, "year", 0); !ok {
		return badRequest(c, "year", "must be an integer")
	}
	if p.Page, ok = queryInt(c, "page", 1); !ok {
		return badRequest(c, "page", "must be an integer")
	}

	result, err := h.movies.Discover(c.Context(), p)
	if err != nil {
		return respondError(c, err, "discover movies")
	}
	return c.JSON(result)
}

// Details returns one movie.
// @Summary Get movie detail
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} models.Movie
// @Failure 404 {object} ErrorResponse
// @Router /movies/{id} [get]
func (h *MovieHandler) Details(c fiber.Ctx) error {
	movie, err := h.movies.Details(c.Context(), fiber.Params[int](c, "id"))
	if err != nil {
		return respondError(c, err, "retrieve movie details")
	}
	return c.JSON(movie)
}

// Recommendations returns the catalog's recommendations for a movie.
// @Summary Catalog recommendations for a movie
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} models.MoviePage
// @Router /movies/{id}/recommendations [get]
func (h *MovieHandler) Recommendations(c fiber.Ctx) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "page", "must be an integer")
	}
	result, err := h.movies.Recommendations(c.Context(), fiber.Params[int](c, "id"), page)
	if err != nil {
		return respondError(c, err, "retrieve movie recommendations")
	}
	return c.JSON(result)
}

// Similar returns the catalog's similar movies.
// @Summary Similar movies
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} models.MoviePage
// @Router /movies/{id}/similar [get]
func (h *MovieHandler) Similar(c fiber.Ctx) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "page", "must be an integer")
	}
	result, err := h.movies.Similar(c.Context(), fiber.Params[int](c, "id"), page)
	if err != nil {
		return respondError(c, err, "retrieve similar movies")
	}
	return c.JSON(result)
}

// SimilarStored returns similarities computed and stored by the engine.
// @Summary Stored movie similarities
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} map[string]interface{}
// @Router /movies/{id}/similar-stored [get]
func (h *MovieHandler) SimilarStored(c fiber.Ctx) error {
	movieID := fiber.Params[int](c, "id")
	sims, err := h.similar.SimilarMovies(c.Context(), movieID)
	if err != nil {
		return respondError(c, err, "load stored similarities")
	}
	return c.JSON(fiber.Map{
		"movie_id":       movieID,
		"similar_movies": sims,
	})
}

// Genres lists catalog genres.
// @Summary List genres
// @Tags movies
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /genres [get]
func (h *MovieHandler) Genres(c fiber.Ctx) error {
	genres, err := h.movies.Genres(c.Context())
	if err != nil {
		return respondError(c, err, "retrieve genres")
	}
	return c.JSON(fiber.Map{"genres": genres})
}
