package recommend

import (
	"context"
	"sort"
	"time"

	"movie-discovery-recommender/internal/models"
)

const (
	reasonMatrixFactorization = "Matrix factorization based on user preferences"
	reasonNeuralCF            = "Neural collaborative filtering with embeddings"
	reasonKNN                 = "Users and movies similar to your history"

	neuralFavorites     = 10
	neuralFavoriteBlend = 0.5
	neuralCandidateMult = 3

	knnNeighbors        = 20
	knnPersistThreshold = 0.1
)

// matrixFactorizationStrategy scores movies by cosine between the user's
// aggregated item embeddings and each candidate's embedding.
type matrixFactorizationStrategy struct {
	e *Engine
}

func (s *matrixFactorizationStrategy) Kind() Kind { return KindMatrixFactorization }

func (s *matrixFactorizationStrategy) Run(ctx context.Context, userID, limit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error) {
	matrix, err := s.e.interactionMatrix(ctx)
	if err != nil {
		return nil, err
	}
	row := matrix[userID]
	if len(row) == 0 {
		return s.e.Strategy(KindTrending).Run(ctx, userID, limit, settings)
	}

	profile := make([]float64, embeddingDim)
	for _, id := range sortedKeys(row) {
		addScaled(profile, itemEmbedding(id), row[id])
	}

	scores := make(map[int]float64)
	for _, id := range matrix.items() {
		if _, seen := row[id]; seen {
			continue
		}
		scores[id] = (cosine(profile, itemEmbedding(id)) + 1) / 2
	}
	if len(scores) == 0 {
		return s.e.Strategy(KindTrending).Run(ctx, userID, limit, settings)
	}
	return s.e.hydrate(ctx, truncateIDs(rankIDs(scores), limit), scores, reasonMatrixFactorization)
}

// neuralCFStrategy blends an embedding dot product with a fixed MLP
// projection over popular candidates.
type neuralCFStrategy struct {
	e *Engine
}

func (s *neuralCFStrategy) Kind() Kind { return KindNeuralCF }

func (s *neuralCFStrategy) Run(ctx context.Context, userID, limit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error) {
	sig, err := s.e.loadSignals(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sig.empty() {
		return s.e.Strategy(KindTrending).Run(ctx, userID, limit, settings)
	}

	user := userEmbedding(userID)
	for i, f := range sig.favorites {
		if i == neuralFavorites {
			break
		}
		addScaled(user, itemEmbedding(f.MovieID), neuralFavoriteBlend)
	}
	normalize(user)

	pool, err := s.e.listing(ctx, limit*neuralCandidateMult, func(ctx context.Context, page int) (*models.MoviePage, error) {
		return s.e.catalog.Popular(ctx, page)
	})
	if err != nil {
		return nil, err
	}

	seen := sig.interacted()
	var out []models.ScoredCandidate
	for _, m := range pool {
		if seen[m.ID] {
			continue
		}
		item := itemEmbedding(m.ID)
		dot := (cosine(user, item) + 1) / 2
		out = append(out, candidate(m, 0.5*dot+0.5*mlpScore(user, item), reasonNeuralCF))
	}
	out = dedupe(out)
	rank(out)
	return truncate(out, limit), nil
}

// knnStrategy averages user-user and item-item cosine neighborhood scores.
type knnStrategy struct {
	e *Engine
}

func (s *knnStrategy) Kind() Kind { return KindKNN }

func (s *knnStrategy) Run(ctx context.Context, userID, limit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error) {
	matrix, err := s.e.interactionMatrix(ctx)
	if err != nil {
		return nil, err
	}
	row := matrix[userID]
	if len(row) == 0 {
		return s.e.Strategy(KindTrending).Run(ctx, userID, limit, settings)
	}

	userBased := userKNNScores(userID, matrix, knnNeighbors)
	itemBased, pairs := itemKNNScores(row, matrix)
	normalizeMax(userBased)
	normalizeMax(itemBased)

	combined := make(map[int]float64)
	for id, v := range userBased {
		combined[id] += v / 2
	}
	for id, v := range itemBased {
		combined[id] += v / 2
	}
	if len(combined) == 0 {
		return s.e.Strategy(KindTrending).Run(ctx, userID, limit, settings)
	}

	top := truncateIDs(rankIDs(combined), limit)
	chosen := idSet(top)
	now := time.Now().UTC()
	var sims []models.MovieSimilarity
	for _, p := range pairs {
		if chosen[p.OtherMovieID] {
			p.UpdatedAt = now
			sims = append(sims, p)
		}
	}
	s.e.saveMovieSimilarities(ctx, sims)

	return s.e.hydrate(ctx, top, combined, reasonKNN)
}

// userKNNScores predicts unseen items from the k most cosine-similar users,
// as the similarity-weighted share of neighbor ratings.
func userKNNScores(userID int, matrix interactionMatrix, k int) map[int]float64 {
	row := matrix[userID]
	type sim struct {
		userID int
		score  float64
	}
	var sims []sim
	for other, theirs := range matrix {
		if other == userID {
			continue
		}
		if s := sparseCosine(row, theirs); s > 0 {
			sims = append(sims, sim{other, s})
		}
	}
	sort.Slice(sims, func(i, j int) bool {
		if sims[i].score != sims[j].score {
			return sims[i].score > sims[j].score
		}
		return sims[i].userID < sims[j].userID
	})
	if len(sims) > k {
		sims = sims[:k]
	}

	scores := make(map[int]float64)
	var total float64
	for _, n := range sims {
		total += n.score
		for id, r := range matrix[n.userID] {
			if _, seen := row[id]; seen {
				continue
			}
			scores[id] += n.score * r
		}
	}
	if total > 0 {
		for id := range scores {
			scores[id] /= total
		}
	}
	return scores
}

// itemKNNScores scores each unseen item by its rating-weighted cosine
// similarity to the user's items. It also returns the item pairs whose
// similarity exceeds the persistence threshold.
func itemKNNScores(row map[int]float64, matrix interactionMatrix) (map[int]float64, []models.MovieSimilarity) {
	cols := matrix.columns()
	mine := sortedKeys(row)
	var weight float64
	for _, id := range mine {
		weight += row[id]
	}

	scores := make(map[int]float64)
	var pairs []models.MovieSimilarity
	for _, candidateID := range sortedKeys(cols) {
		if _, seen := row[candidateID]; seen {
			continue
		}
		var sum float64
		for _, id := range mine {
			s := sparseCosine(cols[id], cols[candidateID])
			if s <= 0 {
				continue
			}
			sum += s * row[id]
			if s > knnPersistThreshold {
				pairs = append(pairs, models.MovieSimilarity{
					MovieID:      id,
					OtherMovieID: candidateID,
					Score:        s,
					Kind:         models.SimilarityCombined,
				})
			}
		}
		if sum > 0 && weight > 0 {
			scores[candidateID] = sum / weight
		}
	}
	return scores, pairs
}

// hydrate fetches details for ranked ids and attaches their scores.
func (e *Engine) hydrate(ctx context.Context, ids []int, scores map[int]float64, reason string) ([]models.ScoredCandidate, error) {
	movies, err := e.fetchDetails(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.ScoredCandidate, 0, len(movies))
	for _, m := range movies {
		out = append(out, candidate(m, scores[m.ID], reason))
	}
	return out, nil
}
