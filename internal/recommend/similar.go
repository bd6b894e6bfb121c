package recommend

import (
	"context"
	"log/slog"

	"movie-discovery-recommender/internal/models"
)

const (
	reasonSimilar    = "Similar to movies you liked"
	similarFavorites = 5
)

// similarStrategy expands the user's favorites through the catalog's
// per-movie recommendations.
type similarStrategy struct {
	e *Engine
}

func (s *similarStrategy) Kind() Kind { return KindSimilar }

func (s *similarStrategy) Run(ctx context.Context, userID, limit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error) {
	favorites, err := s.e.store.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(favorites) == 0 {
		return s.e.Strategy(KindContent).Run(ctx, userID, limit, settings)
	}

	liked := make(map[int]bool, len(favorites))
	for _, f := range favorites {
		liked[f.MovieID] = true
	}
	sources := favorites
	if len(sources) > similarFavorites {
		sources = sources[:similarFavorites]
	}

	pages, errs, err := fanOut(ctx, s.e.concurrency, len(sources), func(ctx context.Context, i int) (*models.MoviePage, error) {
		return s.e.catalog.MovieRecommendations(ctx, sources[i].MovieID, 1)
	})
	if err != nil {
		return nil, err
	}

	var out []models.ScoredCandidate
	for i, page := range pages {
		if errs[i] != nil {
			slog.Warn("movie recommendations lookup failed", "movie_id", sources[i].MovieID, "error", errs[i])
			continue
		}
		for _, m := range page.Results {
			if liked[m.ID] {
				continue
			}
			out = append(out, candidate(m, m.VoteAverage/10, reasonSimilar))
		}
	}
	if len(out) == 0 {
		return s.e.Strategy(KindContent).Run(ctx, userID, limit, settings)
	}
	out = dedupe(out)
	rank(out)
	return truncate(out, limit), nil
}
