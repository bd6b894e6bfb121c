package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"movie-discovery-recommender/internal/models"
)

const (
	topGenres           = 3
	unratedViewWeight   = 0.5
	contentAffinityPart = 0.7
	contentPopularPart  = 0.3
)

// contentStrategy recommends highly rated movies from the user's strongest genres.
type contentStrategy struct {
	e *Engine
}

func (s *contentStrategy) Kind() Kind { return KindContent }

func (s *contentStrategy) Run(ctx context.Context, userID, limit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error) {
	sig, err := s.e.loadSignals(ctx, userID)
	if err != nil {
		return nil, err
	}
	affinity, err := s.e.genreAffinity(ctx, sig)
	if err != nil {
		return nil, err
	}
	if len(affinity) == 0 {
		return s.e.Strategy(KindTrending).Run(ctx, userID, limit, settings)
	}

	genres := strongestGenres(affinity, topGenres)
	pages, errs, err := fanOut(ctx, s.e.concurrency, len(genres), func(ctx context.Context, i int) (*models.MoviePage, error) {
		return s.e.catalog.Discover(ctx, models.DiscoverParams{
			GenreIDs:     []int{genres[i]},
			SortBy:       "vote_average.desc",
			MinVoteCount: settings.MinVoteCount,
			Page:         1,
		})
	})
	if err != nil {
		return nil, err
	}

	names := s.e.genreNames(ctx)
	seen := sig.interacted()
	var out []models.ScoredCandidate
	for i, page := range pages {
		if errs[i] != nil {
			slog.Warn("genre discovery failed", "genre_id", genres[i], "user_id", userID, "error", errs[i])
			continue
		}
		reason := fmt.Sprintf("Based on your interest in %s", genreLabel(names, genres[i]))
		for _, m := range page.Results {
			if seen[m.ID] {
				continue
			}
			out = append(out, candidate(m, contentScore(m, affinity), reason))
		}
	}
	if len(out) == 0 {
		return s.e.Strategy(KindTrending).Run(ctx, userID, limit, settings)
	}

	out = dedupe(out)
	rank(out)
	return truncate(out, limit), nil
}

// genreAffinity weights genres by favorites (1.0 each) and viewings
// (rating/10, or 0.5 when unrated).
func (e *Engine) genreAffinity(ctx context.Context, sig signals) (map[int]float64, error) {
	weights := make(map[int]float64)
	var ids []int
	for _, f := range sig.favorites {
		if _, ok := weights[f.MovieID]; !ok {
			ids = append(ids, f.MovieID)
		}
		weights[f.MovieID] += 1.0
	}
	for _, h := range sig.history {
		w := unratedViewWeight
		if h.Rating != nil {
			w = float64(*h.Rating) / 10
		}
		if _, ok := weights[h.MovieID]; !ok {
			ids = append(ids, h.MovieID)
		}
		weights[h.MovieID] += w
	}

	movies, err := e.fetchDetails(ctx, ids)
	if err != nil {
		return nil, err
	}
	affinity := make(map[int]float64)
	for _, m := range movies {
		for _, g := range m.GenreIDList() {
			affinity[g] += weights[m.ID]
		}
	}
	return affinity, nil
}

// strongestGenres returns up to n genre ids by affinity, ties by id.
func strongestGenres(affinity map[int]float64, n int) []int {
	ids := make([]int, 0, len(affinity))
	for id := range affinity {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if affinity[ids[i]] != affinity[ids[j]] {
			return affinity[ids[i]] > affinity[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

func contentScore(m models.Movie, affinity map[int]float64) float64 {
	var sum float64
	for _, g := range m.GenreIDList() {
		sum += affinity[g]
	}
	return sum*contentAffinityPart + math.Min(m.Popularity/1000, 1)*contentPopularPart
}

func genreLabel(names map[int]string, id int) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return "Unknown Genre"
}
