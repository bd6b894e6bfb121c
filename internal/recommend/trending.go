package recommend

import (
	"context"
	"log/slog"

	"movie-discovery-recommender/internal/models"
)

const (
	reasonTrending = "Currently trending"
	reasonPopular  = "Popular movie"

	// maxListingPages caps pagination through catalog listings.
	maxListingPages = 5
)

// trendingStrategy ranks the catalog's trending listing by popularity.
// It falls back to the popular listing and never returns a catalog error.
type trendingStrategy struct {
	e *Engine
}

func (s *trendingStrategy) Kind() Kind { return KindTrending }

func (s *trendingStrategy) Run(ctx context.Context, userID, limit int, _ models.RecommendationSettings) ([]models.ScoredCandidate, error) {
	movies, err := s.e.listing(ctx, limit, func(ctx context.Context, page int) (*models.MoviePage, error) {
		return s.e.catalog.Trending(ctx, s.e.window, page)
	})
	if err == nil && len(movies) > 0 {
		out := make([]models.ScoredCandidate, 0, len(movies))
		for _, m := range movies {
			out = append(out, candidate(m, m.Popularity/1000, reasonTrending))
		}
		return truncate(dedupe(out), limit), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	slog.Warn("trending listing unavailable, using popular", "user_id", userID, "error", err)

	movies, err = s.e.listing(ctx, limit, func(ctx context.Context, page int) (*models.MoviePage, error) {
		return s.e.catalog.Popular(ctx, page)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Error("popular listing unavailable, returning no recommendations", "user_id", userID, "error", err)
		return []models.ScoredCandidate{}, nil
	}
	out := make([]models.ScoredCandidate, 0, len(movies))
	for _, m := range movies {
		out = append(out, candidate(m, m.VoteAverage/10, reasonPopular))
	}
	return truncate(dedupe(out), limit), nil
}

// listing pages through a catalog listing until limit movies are collected.
// An error on the first page is returned; later pages end the walk.
func (e *Engine) listing(ctx context.Context, limit int, fetch func(ctx context.Context, page int) (*models.MoviePage, error)) ([]models.Movie, error) {
	var movies []models.Movie
	for page := 1; page <= maxListingPages && len(movies) < limit; page++ {
		p, err := fetch(ctx, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			break
		}
		movies = append(movies, p.Results...)
		if len(p.Results) == 0 || page >= p.TotalPages {
			break
		}
	}
	return movies, nil
}
