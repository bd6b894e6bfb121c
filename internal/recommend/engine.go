package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"movie-discovery-recommender/internal/metrics"
	"movie-discovery-recommender/internal/models"
)

// Weight pairs a strategy with its relative contribution to a combined list.
type Weight struct {
	Kind   Kind
	Weight float64
}

// DefaultEnsembleWeights is the fixed ensemble used by KindEnsemble.
var DefaultEnsembleWeights = []Weight{
	{KindContent, 0.25},
	{KindKNN, 0.25},
	{KindMatrixFactorization, 0.20},
	{KindSequential, 0.15},
	{KindNeuralCF, 0.15},
}

// EnsembleWeights converts a name→weight map into an ordered weight list.
// A nil or empty map yields DefaultEnsembleWeights. Composite kinds cannot
// be nested inside the ensemble.
func EnsembleWeights(raw map[string]float64) ([]Weight, error) {
	if len(raw) == 0 {
		return DefaultEnsembleWeights, nil
	}
	weights := make([]Weight, 0, len(raw))
	for name, w := range raw {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		if kind == KindHybrid || kind == KindEnsemble {
			return nil, fmt.Errorf("%s cannot be an ensemble member", kind)
		}
		if w <= 0 {
			continue
		}
		weights = append(weights, Weight{Kind: kind, Weight: w})
	}
	sort.Slice(weights, func(i, j int) bool {
		return kindOrder(weights[i].Kind) < kindOrder(weights[j].Kind)
	})
	return weights, nil
}

func kindOrder(k Kind) int {
	for i, kind := range Kinds {
		if kind == k {
			return i
		}
	}
	return len(Kinds)
}

// Options tunes an Engine. Zero values select sensible defaults.
type Options struct {
	// TrendingWindow is "day" or "week".
	TrendingWindow string
	// Concurrency bounds parallel catalog calls and strategy runs.
	Concurrency int
	// Ensemble overrides DefaultEnsembleWeights.
	Ensemble []Weight
	// Similarity receives computed pairwise similarities; may be nil.
	Similarity SimilarityStore
}

// Engine builds strategies over a catalog and an interaction store.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	catalog     Catalog
	store       InteractionStore
	similarity  SimilarityStore
	window      string
	concurrency int
	ensemble    []Weight
}

func NewEngine(catalog Catalog, store InteractionStore, opts Options) *Engine {
	window := opts.TrendingWindow
	if window != "day" && window != "week" {
		window = "week"
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	ensemble := opts.Ensemble
	if len(ensemble) == 0 {
		ensemble = DefaultEnsembleWeights
	}
	return &Engine{
		catalog:     catalog,
		store:       store,
		similarity:  opts.Similarity,
		window:      window,
		concurrency: concurrency,
		ensemble:    ensemble,
	}
}

// Strategy returns the implementation of kind. Unknown kinds yield Trending.
func (e *Engine) Strategy(kind Kind) Strategy {
	switch kind {
	case KindContent:
		return &contentStrategy{e: e}
	case KindCollaborative:
		return &collaborativeStrategy{e: e}
	case KindSequential:
		return &sequentialStrategy{e: e}
	case KindSimilar:
		return &similarStrategy{e: e}
	case KindMatrixFactorization:
		return &matrixFactorizationStrategy{e: e}
	case KindNeuralCF:
		return &neuralCFStrategy{e: e}
	case KindKNN:
		return &knnStrategy{e: e}
	case KindHybrid:
		return &hybridStrategy{e: e}
	case KindEnsemble:
		return &ensembleStrategy{e: e}
	default:
		return &trendingStrategy{e: e}
	}
}

// Recommend runs kind for the user and returns at most limit candidates.
// A failing strategy degrades to Trending; only cancellation is returned
// as an error.
func (e *Engine) Recommend(ctx context.Context, kind Kind, userID, limit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error) {
	results, err := e.run(ctx, e.Strategy(kind), userID, limit, settings)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("strategy failed, falling back to trending", "strategy", kind, "user_id", userID, "error", err)
		results, err = e.run(ctx, e.Strategy(KindTrending), userID, limit, settings)
		if err != nil {
			return nil, err
		}
	}
	return truncate(dedupe(results), limit), nil
}

// run executes s while recording duration and failure metrics.
func (e *Engine) run(ctx context.Context, s Strategy, userID, limit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error) {
	start := time.Now()
	results, err := s.Run(ctx, userID, limit, settings)
	metrics.StrategyDuration.WithLabelValues(string(s.Kind())).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, context.Canceled) {
		metrics.StrategyFailuresTotal.WithLabelValues(string(s.Kind())).Inc()
	}
	return results, err
}

// fanOut calls fn for i in [0,n) with at most limit calls in flight.
// Per-call errors are reported in errs without cancelling siblings; err is
// non-nil only when ctx ends.
func fanOut[T any](ctx context.Context, limit, n int, fn func(ctx context.Context, i int) (T, error)) (results []T, errs []error, err error) {
	results = make([]T, n)
	errs = make([]error, n)

	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return nil
			}
			results[i], errs[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	return results, errs, nil
}

// fetchDetails loads catalog details for ids, preserving order and
// dropping movies the catalog could not return.
func (e *Engine) fetchDetails(ctx context.Context, ids []int) ([]models.Movie, error) {
	movies, errs, err := fanOut(ctx, e.concurrency, len(ids), func(ctx context.Context, i int) (*models.Movie, error) {
		return e.catalog.MovieDetails(ctx, ids[i])
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.Movie, 0, len(ids))
	for i, m := range movies {
		if errs[i] != nil || m == nil {
			slog.Debug("skipping movie without details", "movie_id", ids[i], "error", errs[i])
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

// signals is what a strategy knows about one user.
type signals struct {
	favorites []models.Favorite
	history   []models.ViewingHistoryEntry
}

func (s signals) empty() bool {
	return len(s.favorites) == 0 && len(s.history) == 0
}

// interacted returns every movie the user favorited or watched.
func (s signals) interacted() map[int]bool {
	seen := make(map[int]bool, len(s.favorites)+len(s.history))
	for _, f := range s.favorites {
		seen[f.MovieID] = true
	}
	for _, h := range s.history {
		seen[h.MovieID] = true
	}
	return seen
}

func (e *Engine) loadSignals(ctx context.Context, userID int) (signals, error) {
	favorites, err := e.store.ListFavorites(ctx, userID)
	if err != nil {
		return signals{}, fmt.Errorf("failed to load favorites: %w", err)
	}
	history, err := e.store.ListViewingHistory(ctx, userID, 0)
	if err != nil {
		return signals{}, fmt.Errorf("failed to load viewing history: %w", err)
	}
	return signals{favorites: favorites, history: history}, nil
}

// genreNames returns the catalog's genre id→name map, empty on failure.
func (e *Engine) genreNames(ctx context.Context) map[int]string {
	genres, err := e.catalog.Genres(ctx)
	if err != nil {
		slog.Warn("failed to load genre names", "error", err)
		return map[int]string{}
	}
	names := make(map[int]string, len(genres))
	for _, g := range genres {
		names[g.ID] = g.Name
	}
	return names
}

func (e *Engine) saveUserSimilarities(ctx context.Context, sims []models.UserSimilarity) {
	if e.similarity == nil || len(sims) == 0 {
		return
	}
	if err := e.similarity.SaveUserSimilarities(ctx, sims); err != nil {
		slog.Warn("failed to persist user similarities", "error", err)
	}
}

func (e *Engine) saveMovieSimilarities(ctx context.Context, sims []models.MovieSimilarity) {
	if e.similarity == nil || len(sims) == 0 {
		return
	}
	if err := e.similarity.SaveMovieSimilarities(ctx, sims); err != nil {
		slog.Warn("failed to persist movie similarities", "error", err)
	}
}

// candidate wraps a movie with a score and reason.
func candidate(m models.Movie, score float64, reason string) models.ScoredCandidate {
	return models.ScoredCandidate{Movie: m, Score: finite(score), Reason: reason}
}

// rank sorts by score descending, keeping input order among equal scores.
func rank(cands []models.ScoredCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Score > cands[j].Score
	})
}

// dedupe keeps the first occurrence of every movie id.
func dedupe(cands []models.ScoredCandidate) []models.ScoredCandidate {
	seen := make(map[int]bool, len(cands))
	out := make([]models.ScoredCandidate, 0, len(cands))
	for _, c := range cands {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

func truncate(cands []models.ScoredCandidate, limit int) []models.ScoredCandidate {
	if limit >= 0 && len(cands) > limit {
		return cands[:limit]
	}
	return cands
}
