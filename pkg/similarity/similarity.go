// Package similarity provides pure cosine-similarity math over embeddings.
// Nothing here touches I/O or shared mutable state, so every function is
// safe to call concurrently.
package similarity

import (
	"math"
	"sort"
)

// Cosine computes the cosine similarity between two embeddings, in [-1, 1].
// The second return value is false when the similarity is undefined:
// mismatched lengths, empty vectors, or a zero-magnitude vector. It never
// panics and never compares vectors of different dimensionality.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, false
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}

// Candidate is an embedding with a stable identifier, used for ranking.
type Candidate struct {
	ID        string
	Embedding []float32
}

// Neighbor is a ranked candidate.
type Neighbor struct {
	ID    string
	Score float64
}

// NearestNeighbors returns the top-k candidates by descending cosine
// similarity to query. Candidates whose similarity to the query is undefined
// are skipped. Ties are broken by ascending candidate ID so rankings are
// deterministic across runs.
func NearestNeighbors(query []float32, candidates []Candidate, k int) []Neighbor {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	scored := make([]Neighbor, 0, len(candidates))
	for _, c := range candidates {
		if score, ok := Cosine(query, c.Embedding); ok {
			scored = append(scored, Neighbor{ID: c.ID, Score: score})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

// Mean computes the arithmetic mean of the vectors that have the expected
// dimensionality, ignoring the rest. Returns nil when no vector qualifies,
// which callers treat as an absent mean embedding.
func Mean(vectors [][]float32, dim int) []float32 {
	if dim <= 0 {
		return nil
	}

	sum := make([]float64, dim)
	count := 0
	for _, v := range vectors {
		if len(v) != dim {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		count++
	}

	if count == 0 {
		return nil
	}

	mean := make([]float32, dim)
	for i, s := range sum {
		mean[i] = float32(s / float64(count))
	}
	return mean
}
