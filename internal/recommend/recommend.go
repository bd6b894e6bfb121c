// Package recommend scores catalog movies for a user.
//
// Every algorithm implements Strategy and is selected through the closed
// Kind enum. Simple strategies (trending, content, collaborative,
// sequential, similar) wrap catalog queries around the user's favorites and
// viewing history. The heuristic strategies (matrix factorization, neural
// CF, KNN) use deterministic pseudo-embeddings keyed by id; they are
// explicit simplifications, not trained models.
//
// Hybrid and ensemble strategies run several strategies concurrently and
// fold their weighted outputs into one deduplicated list.
//
// Fallback order: collaborative and similar fall back to content, content
// and sequential to trending, trending to the popular listing, and finally
// to an empty list.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"movie-discovery-recommender/internal/models"
)

// Kind names a recommendation strategy.
type Kind string

const (
	KindTrending            Kind = "trending"
	KindContent             Kind = "content"
	KindCollaborative       Kind = "collaborative"
	KindSequential          Kind = "sequential"
	KindSimilar             Kind = "similar"
	KindMatrixFactorization Kind = "matrix_factorization"
	KindNeuralCF            Kind = "neural_cf"
	KindKNN                 Kind = "collaborative_knn"
	KindHybrid              Kind = "hybrid"
	KindEnsemble            Kind = "ensemble"
)

// DefaultKind is used when a request names no strategy.
const DefaultKind = KindHybrid

// Kinds lists every supported strategy.
var Kinds = []Kind{
	KindTrending,
	KindContent,
	KindCollaborative,
	KindSequential,
	KindSimilar,
	KindMatrixFactorization,
	KindNeuralCF,
	KindKNN,
	KindHybrid,
	KindEnsemble,
}

// ErrUnknownKind is returned by ParseKind for unsupported names.
var ErrUnknownKind = errors.New("unknown recommendation type")

// ParseKind resolves a strategy name. The empty string selects DefaultKind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultKind, nil
	}
	for _, k := range Kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownKind, name)
}

// Strategy produces a ranked, deduplicated list of scored movies for a user.
// Implementations return at most limit candidates.
type Strategy interface {
	Kind() Kind
	Run(ctx context.Context, userID, limit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error)
}

// Catalog is the movie metadata source.
type Catalog interface {
	Trending(ctx context.Context, window string, page int) (*models.MoviePage, error)
	Popular(ctx context.Context, page int) (*models.MoviePage, error)
	Discover(ctx context.Context, p models.DiscoverParams) (*models.MoviePage, error)
	MovieDetails(ctx context.Context, id int) (*models.Movie, error)
	MovieRecommendations(ctx context.Context, id, page int) (*models.MoviePage, error)
	SimilarMovies(ctx context.Context, id, page int) (*models.MoviePage, error)
	Genres(ctx context.Context) ([]models.Genre, error)
}

// InteractionStore exposes user favorites and viewing history.
type InteractionStore interface {
	// ListFavorites returns the user's favorites, newest first.
	ListFavorites(ctx context.Context, userID int) ([]models.Favorite, error)
	// ListViewingHistory returns up to limit entries newest first; limit <= 0 means all.
	ListViewingHistory(ctx context.Context, userID, limit int) ([]models.ViewingHistoryEntry, error)
	// ListAllFavorites returns favorite movie ids for every user.
	ListAllFavorites(ctx context.Context) (map[int][]int, error)
	// ListAllWatched returns distinct watched movie ids for every user.
	ListAllWatched(ctx context.Context) (map[int][]int, error)
}

// SimilarityStore persists pairwise similarities computed as a by-product
// of running strategies.
type SimilarityStore interface {
	SaveUserSimilarities(ctx context.Context, sims []models.UserSimilarity) error
	SaveMovieSimilarities(ctx context.Context, sims []models.MovieSimilarity) error
}
