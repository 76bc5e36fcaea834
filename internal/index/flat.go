// Package index implements a flat (brute-force) Euclidean nearest-neighbor
// index over dense float32 vectors. Corpora are small (hundreds to low
// thousands of chunks per product), so exact scan beats approximate
// structures and keeps retrieval deterministic.
package index

import (
	"fmt"
	"sort"

	"github.com/kovanlabs/reviewrag/internal/domain"
)

// Flat is an exact L2 index. Entries are append-only and position-addressed:
// position i here must stay aligned with position i in the persisted chunk
// list. Read-only after Build.
type Flat struct {
	dim     int
	vectors [][]float32
}

// Hit is one search result: the positional id of an entry and its squared L2
// distance to the query. Ordering by squared L2 equals ordering by Euclidean
// distance.
type Hit struct {
	ID       int
	Distance float32
}

// Build constructs a flat index over the given vectors. The dimension is
// inferred from the first vector; any vector with a different dimension fails
// with domain.ErrVectorDimMismatch.
func Build(vectors [][]float32) (*Flat, error) {
	idx := &Flat{}
	for i, v := range vectors {
		if idx.dim == 0 {
			idx.dim = len(v)
		}
		if len(v) == 0 || len(v) != idx.dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, index has %d",
				domain.ErrVectorDimMismatch, i, len(v), idx.dim)
		}
		idx.vectors = append(idx.vectors, v)
	}
	return idx, nil
}

// Size returns the number of indexed vectors.
func (f *Flat) Size() int { return len(f.vectors) }

// Dim returns the vector dimension, 0 for an empty index.
func (f *Flat) Dim() int { return f.dim }

// Search returns the k nearest entries to query by ascending squared L2
// distance, ties broken by ascending position id. When the index holds fewer
// than k entries, all of them are returned. An empty index fails with
// domain.ErrEmptyIndex.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if len(f.vectors) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			domain.ErrVectorDimMismatch, len(query), f.dim)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Hit{ID: i, Distance: sqL2(query, v)}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func sqL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
