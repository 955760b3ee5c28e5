// Package vectordb provides in-memory cosine similarity helpers used as
// a fallback when the sqlite-vec index is unavailable, and by tests.
package vectordb

import (
	"math"
	"sort"
)

// CosineSim returns the cosine similarity of two vectors, or 0 when
// either vector is zero or the dimensions differ.
func CosineSim(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDist returns the cosine distance 1 - CosineSim(a, b).
func CosineDist(a, b []float32) float64 {
	return 1 - CosineSim(a, b)
}

// Neighbor is one ranked match from TopK.
type Neighbor struct {
	Index      int
	Similarity float64
}

// TopK ranks vectors by cosine similarity to query and returns the k
// best, highest first.
func TopK(query []float32, vectors [][]float32, k int) []Neighbor {
	if k <= 0 || len(vectors) == 0 {
		return nil
	}

	neighbors := make([]Neighbor, 0, len(vectors))
	for i, v := range vectors {
		neighbors = append(neighbors, Neighbor{
			Index:      i,
			Similarity: CosineSim(query, v),
		})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].Similarity > neighbors[j].Similarity
	})

	if k > len(neighbors) {
		k = len(neighbors)
	}
	return neighbors[:k]
}
