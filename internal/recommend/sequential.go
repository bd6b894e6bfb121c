package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"movie-discovery-recommender/internal/models"
)

const (
	recentHistorySize   = 10
	recentSourceMovies  = 3
	defaultSimilarScore = 0.5
)

// sequentialStrategy expands the most recently watched movies into their
// catalog-similar movies, decaying by recency.
type sequentialStrategy struct {
	e *Engine
}

func (s *sequentialStrategy) Kind() Kind { return KindSequential }

func (s *sequentialStrategy) Run(ctx context.Context, userID, limit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error) {
	history, err := s.e.store.ListViewingHistory(ctx, userID, recentHistorySize)
	if err != nil {
		return nil, fmt.Errorf("failed to load viewing history: %w", err)
	}
	if len(history) == 0 {
		return s.e.Strategy(KindTrending).Run(ctx, userID, limit, settings)
	}

	recent := make(map[int]bool, len(history))
	var sources []int
	for _, h := range history {
		if recent[h.MovieID] {
			continue
		}
		recent[h.MovieID] = true
		sources = append(sources, h.MovieID)
	}
	sources = truncateIDs(sources, recentSourceMovies)

	type expansion struct {
		source  *models.Movie
		similar []models.Movie
	}
	expansions, errs, err := fanOut(ctx, s.e.concurrency, len(sources), func(ctx context.Context, i int) (expansion, error) {
		page, err := s.e.catalog.SimilarMovies(ctx, sources[i], 1)
		if err != nil {
			return expansion{}, err
		}
		source, err := s.e.catalog.MovieDetails(ctx, sources[i])
		if err != nil {
			slog.Debug("source movie details unavailable", "movie_id", sources[i], "error", err)
		}
		return expansion{source: source, similar: page.Results}, nil
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	best := make(map[int]int)
	var out []models.ScoredCandidate
	var sims []models.MovieSimilarity
	for pos, exp := range expansions {
		if errs[pos] != nil {
			slog.Warn("similar movies lookup failed", "movie_id", sources[pos], "user_id", userID, "error", errs[pos])
			continue
		}
		decay := 1.0 / float64(pos+1)
		reason := "Similar to a recently watched movie"
		if exp.source != nil && exp.source.Title != "" {
			reason = fmt.Sprintf("Similar to %s, which you watched recently", exp.source.Title)
		}
		for _, m := range exp.similar {
			if exp.source != nil {
				sims = append(sims, models.MovieSimilarity{
					MovieID:      exp.source.ID,
					OtherMovieID: m.ID,
					Score:        genreJaccard(exp.source.GenreIDList(), m.GenreIDList()),
					Kind:         models.SimilarityGenre,
					UpdatedAt:    now,
				})
			}
			if recent[m.ID] {
				continue
			}
			c := candidate(m, similarBaseScore(m)*decay, reason)
			if idx, ok := best[m.ID]; ok {
				if c.Score > out[idx].Score {
					out[idx] = c
				}
				continue
			}
			best[m.ID] = len(out)
			out = append(out, c)
		}
	}
	s.e.saveMovieSimilarities(ctx, sims)

	if len(out) == 0 {
		return s.e.Strategy(KindTrending).Run(ctx, userID, limit, settings)
	}
	rank(out)
	return truncate(out, limit), nil
}

// similarBaseScore is the catalog rating scaled to [0,1], or 0.5 for
// movies with no votes.
func similarBaseScore(m models.Movie) float64 {
	if m.VoteAverage <= 0 {
		return defaultSimilarScore
	}
	return m.VoteAverage / 10
}
