package recommend

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sort"
)

const (
	embeddingDim = 32
	mlpHidden    = 16

	favoriteWeight = 1.0
	watchedWeight  = 0.8
)

// pseudoVector returns a deterministic unit vector for (namespace, id).
// The same inputs always produce the same vector, across processes.
func pseudoVector(namespace string, id, dim int) []float64 {
	h := fnv.New64a()
	h.Write([]byte(namespace))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	h.Write(buf[:])
	seed := h.Sum64()

	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	v := make([]float64, dim)
	for i := range v {
		v[i] = r.NormFloat64()
	}
	normalize(v)
	return v
}

func itemEmbedding(movieID int) []float64 { return pseudoVector("item", movieID, embeddingDim) }
func userEmbedding(userID int) []float64  { return pseudoVector("user", userID, embeddingDim) }

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	n := math.Sqrt(sum)
	for i := range v {
		v[i] /= n
	}
}

// addScaled sets dst += w*src.
func addScaled(dst, src []float64, w float64) {
	for i := range dst {
		dst[i] += w * src[i]
	}
}

// mlpScore runs the concatenated user and item vectors through a fixed
// two-layer ReLU projection with a sigmoid output in (0,1).
func mlpScore(user, item []float64) float64 {
	input := make([]float64, 0, len(user)+len(item))
	input = append(input, user...)
	input = append(input, item...)

	out := pseudoVector("mlp-out", 0, mlpHidden)
	var z float64
	for j := 0; j < mlpHidden; j++ {
		w := pseudoVector("mlp-hidden", j, len(input))
		var a float64
		for k, x := range input {
			a += w[k] * x
		}
		if a > 0 {
			z += out[j] * a
		}
	}
	return 1 / (1 + math.Exp(-z))
}

// interactionMatrix is user → movie → implicit rating. Favorites count 1.0,
// viewings of movies that are not favorites count 0.8.
type interactionMatrix map[int]map[int]float64

func (e *Engine) interactionMatrix(ctx context.Context) (interactionMatrix, error) {
	favorites, err := e.store.ListAllFavorites(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	watched, err := e.store.ListAllWatched(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load viewing history: %w", err)
	}

	m := make(interactionMatrix)
	row := func(userID int) map[int]float64 {
		r, ok := m[userID]
		if !ok {
			r = make(map[int]float64)
			m[userID] = r
		}
		return r
	}
	for userID, ids := range favorites {
		r := row(userID)
		for _, id := range ids {
			r[id] = favoriteWeight
		}
	}
	for userID, ids := range watched {
		r := row(userID)
		for _, id := range ids {
			if _, ok := r[id]; !ok {
				r[id] = watchedWeight
			}
		}
	}
	return m, nil
}

// items returns every movie id in the matrix, ascending.
func (m interactionMatrix) items() []int {
	set := make(map[int]bool)
	for _, row := range m {
		for id := range row {
			set[id] = true
		}
	}
	return sortedKeys(set)
}

// columns transposes the matrix into movie → user → rating.
func (m interactionMatrix) columns() map[int]map[int]float64 {
	cols := make(map[int]map[int]float64)
	for userID, row := range m {
		for movieID, r := range row {
			c, ok := cols[movieID]
			if !ok {
				c = make(map[int]float64)
				cols[movieID] = c
			}
			c[userID] = r
		}
	}
	return cols
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// rankIDs orders ids by score descending, then id ascending.
func rankIDs(scores map[int]float64) []int {
	ids := sortedKeys(scores)
	sort.SliceStable(ids, func(i, j int) bool {
		return scores[ids[i]] > scores[ids[j]]
	})
	return ids
}
