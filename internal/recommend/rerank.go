package recommend

import "movie-discovery-recommender/internal/models"

// Rerank reorders cands with Maximal Marginal Relevance, trading score for
// genre diversity:
//
//	MMR = argmax[lambda*score(i) - (1-lambda)*max(sim(i, s)) for s in selected]
//
// sim is the Jaccard similarity of genre ids. lambda is clamped to [0,1];
// lambda 1 keeps the input order. The result has the same length as cands.
func Rerank(cands []models.ScoredCandidate, lambda float64) []models.ScoredCandidate {
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}
	if len(cands) < 2 || lambda == 1 {
		return cands
	}

	genres := make([][]int, len(cands))
	for i := range cands {
		genres[i] = cands[i].GenreIDList()
	}

	selected := make([]int, 0, len(cands))
	taken := make([]bool, len(cands))
	for len(selected) < len(cands) {
		best := -1
		bestScore := 0.0
		for i, c := range cands {
			if taken[i] {
				continue
			}
			maxSim := 0.0
			for _, j := range selected {
				if sim := genreJaccard(genres[i], genres[j]); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*c.Score - (1-lambda)*maxSim
			if best < 0 || score > bestScore {
				best, bestScore = i, score
			}
		}
		taken[best] = true
		selected = append(selected, best)
	}

	out := make([]models.ScoredCandidate, len(selected))
	for i, idx := range selected {
		out[i] = cands[idx]
	}
	return out
}

// DiversityLambda maps a user's genre diversity preference to an MMR lambda.
func DiversityLambda(settings models.RecommendationSettings) float64 {
	return 1 - settings.GenreDiversity
}
