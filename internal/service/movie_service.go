package service

import (
	"context"
	"errors"
	"strings"

	"movie-discovery-recommender/internal/models"
	"movie-discovery-recommender/internal/tmdb"
)

// Catalog is the read side of the movie catalog.
type Catalog interface {
	Trending(ctx context.Context, window string, page int) (*models.MoviePage, error)
	Popular(ctx context.Context, page int) (*models.MoviePage, error)
	Search(ctx context.Context, query string, page, year int) (*models.MoviePage, error)
	Discover(ctx context.Context, p models.DiscoverParams) (*models.MoviePage, error)
	MovieDetails(ctx context.Context, id int) (*models.Movie, error)
	MovieRecommendations(ctx context.Context, id, page int) (*models.MoviePage, error)
	SimilarMovies(ctx context.Context, id, page int) (*models.MoviePage, error)
	Genres(ctx context.Context) ([]models.Genre, error)
}

// MovieService validates catalog queries and maps catalog errors.
type MovieService struct {
	catalog Catalog
}

// NewMovieService creates a new MovieService.
func NewMovieService(catalog Catalog) *MovieService {
	return &MovieService{catalog: catalog}
}

func (s *MovieService) Trending(ctx context.Context, window string, page int) (*models.MoviePage, error) {
	if window == "" {
		window = "day"
	}
	if window != "day" && window != "week" {
		return nil, invalid("window", "must be one of: day, week")
	}
	if err := checkPage(page); err != nil {
		return nil, err
	}
	return wrapCatalog(s.catalog.Trending(ctx, window, page))
}

func (s *MovieService) Popular(ctx context.Context, page int) (*models.MoviePage, error) {
	if err := checkPage(page); err != nil {
		return nil, err
	}
	return wrapCatalog(s.catalog.Popular(ctx, page))
}

func (s *MovieService) Search(ctx context.Context, query string, page, year int) (*models.MoviePage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, invalid("query", "is required")
	}
	if err := checkPage(page); err != nil {
		return nil, err
	}
	if year < 0 {
		return nil, invalid("year", "must be a positive integer")
	}
	return wrapCatalog(s.catalog.Search(ctx, query, page, year))
}

func (s *MovieService) Discover(ctx context.Context, p models.DiscoverParams) (*models.MoviePage, error) {
	if err := checkPage(p.Page); err != nil {
		return nil, err
	}
	if p.MinVoteAverage < 0 || p.MinVoteAverage > 10 {
		return nil, invalid("min_vote_average", "must be between 0 and 10")
	}
	if p.MinVoteCount < 0 {
		return nil, invalid("min_vote_count", "must be at least 0")
	}
	return wrapCatalog(s.catalog.Discover(ctx, p))
}

func (s *MovieService) Details(ctx context.Context, id int) (*models.Movie, error) {
	if id <= 0 {
		return nil, invalid("movie_id", "must be a positive integer")
	}
	return wrapCatalog(s.catalog.MovieDetails(ctx, id))
}

func (s *MovieService) Recommendations(ctx context.Context, id, page int) (*models.MoviePage, error) {
	if id <= 0 {
		return nil, invalid("movie_id", "must be a positive integer")
	}
	if err := checkPage(page); err != nil {
		return nil, err
	}
	return wrapCatalog(s.catalog.MovieRecommendations(ctx, id, page))
}

func (s *MovieService) Similar(ctx context.Context, id, page int) (*models.MoviePage, error) {
	if id <= 0 {
		return nil, invalid("movie_id", "must be a positive integer")
	}
	if err := checkPage(page); err != nil {
		return nil, err
	}
	return wrapCatalog(s.catalog.SimilarMovies(ctx, id, page))
}

func (s *MovieService) Genres(ctx context.Context) ([]models.Genre, error) {
	return wrapCatalog(s.catalog.Genres(ctx))
}

// TMDB serves at most 500 pages per listing.
func checkPage(page int) error {
	if page < 1 || page > 500 {
		return invalid("page", "must be between 1 and 500")
	}
	return nil
}

// wrapCatalog turns a catalog 404 into ErrNotFound.
func wrapCatalog[T any](v T, err error) (T, error) {
	if errors.Is(err, tmdb.ErrNotFound) {
		var zero T
		return zero, ErrNotFound
	}
	return v, err
}
