package recommend

import "math"

// jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func jaccard(a, b map[int]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for id := range a {
		if b[id] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func idSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// genreJaccard compares two genre id lists.
func genreJaccard(a, b []int) float64 {
	return jaccard(idSet(a), idSet(b))
}

// cosine returns the cosine similarity of two dense vectors, clamped to
// [-1, 1] against rounding.
func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return math.Max(-1, math.Min(1, dot/(math.Sqrt(na)*math.Sqrt(nb))))
}

// sparseCosine returns the cosine similarity of two sparse vectors, never
// above 1 even when rounding pushes identical vectors past it.
func sparseCosine(a, b map[int]float64) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var dot float64
	for k, v := range a {
		dot += v * b[k]
	}
	if dot == 0 {
		return 0
	}
	return math.Min(1, dot/(norm(a)*norm(b)))
}

func norm(v map[int]float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// normalizeMax scales scores so the largest becomes 1.
func normalizeMax(scores map[int]float64) {
	maxScore := 0.0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	if maxScore == 0 {
		return
	}
	for id, s := range scores {
		scores[id] = s / maxScore
	}
}

// finite replaces NaN and ±Inf with 0.
func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
