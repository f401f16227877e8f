package vector

import (
	"container/heap"
	"fmt"
	"sort"
	"sync"
)

// FlatIndex is an append-only in-memory index searched by brute-force inner
// product. Vectors are expected to be unit-normalized, so scores are cosine
// similarities. Ids are insertion ordinals: dense, 0-based, never reused.
// A FlatIndex is safe for concurrent use.
type FlatIndex struct {
	mu        sync.RWMutex
	dimension int
	data      []float32 // row-major, size*dimension values
	size      uint64
}

// New returns an index whose dimension is not yet known. It is searchable
// (always empty) and takes its dimension from Create or the first Add.
func New() *FlatIndex {
	return &FlatIndex{}
}

// NewFlatIndex creates an index with a fixed dimension.
func NewFlatIndex(dimension int) (*FlatIndex, error) {
	idx := New()
	if err := idx.Create(dimension); err != nil {
		return nil, err
	}
	return idx, nil
}

// Create fixes the dimension of an index that does not have one yet.
// Calling it again with the same dimension is a no-op.
func (f *FlatIndex) Create(dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dimension != 0 && f.dimension != dimension {
		return &DimensionMismatchError{Want: f.dimension, Got: dimension}
	}
	f.dimension = dimension
	return nil
}

// Add appends batch and returns the ids assigned to it, [size, size+len(batch)).
// Either every vector is added or, on a dimension mismatch, none is.
func (f *FlatIndex) Add(batch [][]float32) ([]uint64, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	dim := f.dimension
	if dim == 0 {
		dim = len(batch[0])
		if dim == 0 {
			return nil, fmt.Errorf("cannot add empty vector")
		}
	}
	for i, v := range batch {
		if len(v) != dim {
			return nil, &DimensionMismatchError{Want: dim, Got: len(v), Position: i}
		}
	}

	f.dimension = dim
	ids := make([]uint64, len(batch))
	for i, v := range batch {
		ids[i] = f.size
		f.data = append(f.data, v...)
		f.size++
	}
	return ids, nil
}

// Search returns at most k hits ordered by descending score, ties broken by
// ascending id. An empty index, or one without a dimension, yields no hits.
func (f *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.size == 0 || f.dimension == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != f.dimension {
		return nil, &DimensionMismatchError{Want: f.dimension, Got: len(query)}
	}
	if uint64(k) > f.size {
		k = int(f.size)
	}

	h := make(worstFirst, 0, k)
	for i := uint64(0); i < f.size; i++ {
		off := i * uint64(f.dimension)
		hit := Hit{ID: i, Score: float32(InnerProduct(query, f.data[off:off+uint64(f.dimension)]))}
		if h.Len() < k {
			heap.Push(&h, hit)
			continue
		}
		if better(hit, h[0]) {
			h[0] = hit
			heap.Fix(&h, 0)
		}
	}
	hits := []Hit(h)
	sort.Slice(hits, func(i, j int) bool { return better(hits[i], hits[j]) })
	return hits, nil
}

// Size returns the number of vectors, which is also the next id.
func (f *FlatIndex) Size() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.size
}

// Dimension returns the vector length, or 0 when not yet known.
func (f *FlatIndex) Dimension() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dimension
}
