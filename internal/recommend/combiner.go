package recommend

import (
	"context"
	"log/slog"
	"strings"

	"movie-discovery-recommender/internal/models"
)

const reasonSeparator = " | "

// Component is a weighted strategy inside a combined recommendation.
type Component struct {
	Strategy Strategy
	Weight   float64
}

// componentResult is the output of one component run.
type componentResult struct {
	kind    Kind
	weight  float64
	results []models.ScoredCandidate
}

// Combine runs components concurrently, each asked for subLimit candidates,
// and folds their outputs: a movie's score is the sum of score×weight over
// the components that returned it, and its reasons are joined without
// duplicates. A failing component is logged and contributes nothing.
// Only cancellation of ctx is returned as an error.
func (e *Engine) Combine(ctx context.Context, components []Component, userID, limit, subLimit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error) {
	outputs, errs, err := fanOut(ctx, e.concurrency, len(components), func(ctx context.Context, i int) ([]models.ScoredCandidate, error) {
		return e.run(ctx, components[i].Strategy, userID, subLimit, settings)
	})
	if err != nil {
		return nil, err
	}

	results := make([]componentResult, 0, len(components))
	for i, c := range components {
		if errs[i] != nil {
			slog.Warn("strategy failed inside combination, skipping", "strategy", c.Strategy.Kind(), "user_id", userID, "error", errs[i])
			continue
		}
		results = append(results, componentResult{kind: c.Strategy.Kind(), weight: c.Weight, results: outputs[i]})
	}
	return truncate(fold(results), limit), nil
}

// fold merges component outputs in component order. It runs on one
// goroutine after every component has finished. Ties keep first-seen order.
func fold(results []componentResult) []models.ScoredCandidate {
	index := make(map[int]int)
	reasons := make(map[int][]string)
	var merged []models.ScoredCandidate

	for _, r := range results {
		seenHere := make(map[int]bool, len(r.results))
		for _, c := range r.results {
			if seenHere[c.ID] {
				continue
			}
			seenHere[c.ID] = true

			weighted := finite(c.Score * r.weight)
			idx, ok := index[c.ID]
			if !ok {
				idx = len(merged)
				index[c.ID] = idx
				merged = append(merged, models.ScoredCandidate{Movie: c.Movie})
			}
			merged[idx].Score += weighted
			if c.Reason != "" && !contains(reasons[c.ID], c.Reason) {
				reasons[c.ID] = append(reasons[c.ID], c.Reason)
			}
		}
	}
	for i := range merged {
		merged[i].Reason = strings.Join(reasons[merged[i].ID], reasonSeparator)
	}
	rank(merged)
	return merged
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Hybrid weights by user tier.
var (
	newUserWeights = []Weight{
		{KindTrending, 0.4},
		{KindContent, 0.3},
		{KindCollaborative, 0.3},
	}
	powerUserWeights = []Weight{
		{KindMatrixFactorization, 0.3},
		{KindNeuralCF, 0.25},
		{KindSequential, 0.25},
		{KindCollaborative, 0.2},
	}
	balancedWeights = []Weight{
		{KindContent, 0.3},
		{KindCollaborative, 0.25},
		{KindSequential, 0.25},
		{KindTrending, 0.2},
	}
)

// HybridWeights picks the strategy mix for a user with the given number of
// favorites and viewing history entries.
func HybridWeights(favorites, history int) []Weight {
	switch {
	case favorites < 3 && history < 5:
		return newUserWeights
	case favorites >= 10 || history >= 20:
		return powerUserWeights
	default:
		return balancedWeights
	}
}

func (e *Engine) components(weights []Weight) []Component {
	components := make([]Component, 0, len(weights))
	for _, w := range weights {
		components = append(components, Component{Strategy: e.Strategy(w.Kind), Weight: w.Weight})
	}
	return components
}

// hybridStrategy combines strategies with weights chosen from how much the
// engine knows about the user.
type hybridStrategy struct {
	e *Engine
}

func (s *hybridStrategy) Kind() Kind { return KindHybrid }

func (s *hybridStrategy) Run(ctx context.Context, userID, limit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error) {
	sig, err := s.e.loadSignals(ctx, userID)
	if err != nil {
		return nil, err
	}
	weights := HybridWeights(len(sig.favorites), len(sig.history))
	out, err := s.e.Combine(ctx, s.e.components(weights), userID, limit, limit*2, settings)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return s.e.Strategy(KindTrending).Run(ctx, userID, limit, settings)
	}
	return out, nil
}

// ensembleStrategy combines a fixed, configurable set of strategies.
type ensembleStrategy struct {
	e *Engine
}

func (s *ensembleStrategy) Kind() Kind { return KindEnsemble }

func (s *ensembleStrategy) Run(ctx context.Context, userID, limit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error) {
	out, err := s.e.Combine(ctx, s.e.components(s.e.ensemble), userID, limit, limit*2, settings)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return s.e.Strategy(KindTrending).Run(ctx, userID, limit, settings)
	}
	for i := range out {
		out[i].Reason = "Ensemble: " + out[i].Reason
	}
	return out, nil
}
