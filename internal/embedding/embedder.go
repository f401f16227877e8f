// Package embedding turns text into unit-normalized vectors. Backends
// implement Embedder; Gateway adds batching, normalization and caching.
package embedding

import "context"

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the vector length, or 0 when the backend only
	// learns it from its first response.
	Dimensions() int
	Close() error
}

// ServiceName labels embedding failures in upstream errors.
const ServiceName = "embedding"
