package recommend

import (
	"time"

	"movie-discovery-recommender/internal/models"
)

// Filter drops candidates released before now.Year()-ReleaseYearRange,
// rated below MinVoteAverage, or with fewer than MinVoteCount votes.
// Candidates without a parseable release date pass the year check.
// Surviving candidates keep their input order.
func Filter(cands []models.ScoredCandidate, settings models.RecommendationSettings, now time.Time) []models.ScoredCandidate {
	minYear := now.Year() - settings.ReleaseYearRange
	out := make([]models.ScoredCandidate, 0, len(cands))
	for _, c := range cands {
		if year, ok := c.ReleaseYear(); ok && year < minYear {
			continue
		}
		if c.VoteAverage < settings.MinVoteAverage {
			continue
		}
		if c.VoteCount < settings.MinVoteCount {
			continue
		}
		out = append(out, c)
	}
	return out
}
