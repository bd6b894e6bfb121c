package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"movie-discovery-recommender/internal/models"
)

const (
	reasonCollaborative = "Based on users with similar taste"

	minNeighborFavorites  = 2
	minNeighborSimilarity = 0.1
	maxNeighbors          = 10
)

// neighbor is another user and their Jaccard similarity to the target user.
type neighbor struct {
	userID     int
	similarity float64
	favorites  []int
}

// collaborativeStrategy recommends favorites of users whose favorites
// overlap the target user's.
type collaborativeStrategy struct {
	e *Engine
}

func (s *collaborativeStrategy) Kind() Kind { return KindCollaborative }

func (s *collaborativeStrategy) Run(ctx context.Context, userID, limit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error) {
	all, err := s.e.store.ListAllFavorites(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	mine := idSet(all[userID])
	neighbors := similarUsers(userID, mine, all)
	if len(neighbors) == 0 {
		return s.e.Strategy(KindContent).Run(ctx, userID, limit, settings)
	}

	now := time.Now().UTC()
	sims := make([]models.UserSimilarity, 0, len(neighbors))
	for _, n := range neighbors {
		sims = append(sims, models.UserSimilarity{UserID: userID, OtherUserID: n.userID, Score: n.similarity, UpdatedAt: now})
	}
	s.e.saveUserSimilarities(ctx, sims)

	// Accumulate similarity per unseen movie across all neighbors.
	scores := make(map[int]float64)
	var order []int
	for _, n := range neighbors {
		for _, id := range n.favorites {
			if mine[id] {
				continue
			}
			if _, ok := scores[id]; !ok {
				order = append(order, id)
			}
			scores[id] += n.similarity
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	order = truncateIDs(order, limit*2)

	movies, err := s.e.fetchDetails(ctx, order)
	if err != nil {
		return nil, err
	}
	out := make([]models.ScoredCandidate, 0, len(movies))
	for _, m := range movies {
		out = append(out, candidate(m, scores[m.ID], reasonCollaborative))
	}
	if len(out) == 0 {
		return s.e.Strategy(KindContent).Run(ctx, userID, limit, settings)
	}
	return truncate(out, limit), nil
}

// similarUsers ranks other users by Jaccard similarity of favorite sets.
// Users with fewer than two favorites or similarity at or below 0.1 are
// ignored; at most ten neighbors are returned.
func similarUsers(userID int, mine map[int]bool, all map[int][]int) []neighbor {
	if len(mine) == 0 {
		return nil
	}
	var neighbors []neighbor
	for other, favorites := range all {
		if other == userID {
			continue
		}
		theirs := idSet(favorites)
		if len(theirs) < minNeighborFavorites {
			continue
		}
		sim := jaccard(mine, theirs)
		if sim <= minNeighborSimilarity {
			continue
		}
		neighbors = append(neighbors, neighbor{userID: other, similarity: sim, favorites: favorites})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].similarity != neighbors[j].similarity {
			return neighbors[i].similarity > neighbors[j].similarity
		}
		return neighbors[i].userID < neighbors[j].userID
	})
	if len(neighbors) > maxNeighbors {
		neighbors = neighbors[:maxNeighbors]
	}
	return neighbors
}

func truncateIDs(ids []int, n int) []int {
	if len(ids) > n {
		return ids[:n]
	}
	return ids
}
