package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/upstream"
	"github.com/hyperjump/kotae/pkg/utils"
)

// DefaultBatchSize is the number of texts sent to a backend per request.
const DefaultBatchSize = 64

// probeText is embedded once on cold start to learn the dimension.
const probeText = "hello"

// Gateway wraps a backend with fixed-size batching, L2 normalization and an
// optional LRU cache. Returned vectors must not be modified by callers.
type Gateway struct {
	embedder  Embedder
	batchSize int
	cache     *VectorCache
	logger    *zap.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithBatchSize sets the backend batch size.
func WithBatchSize(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithCache enables an LRU cache of the given capacity.
func WithCache(capacity int) GatewayOption {
	return func(g *Gateway) {
		if capacity > 0 {
			g.cache = NewVectorCache(capacity)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = utils.NopIfNil(logger)
	}
}

// NewGateway wraps embedder.
func NewGateway(embedder Embedder, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// EmbedBatch returns one normalized vector per text, in order. All vectors
// of a call share one length; a backend that breaks this fails the call.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []int
	for i, t := range texts {
		if g.cache != nil {
			if v, ok := g.cache.Get(t); ok {
				out[i] = v
				continue
			}
		}
		missing = append(missing, i)
	}

	if g.cache != nil && len(missing) < len(texts) {
		g.logger.Debug("embedding cache hits", zap.Int("hits", len(texts)-len(missing)), zap.Int("texts", len(texts)))
	}

	for start := 0; start < len(missing); start += g.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + g.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := make([]string, end-start)
		for j, idx := range missing[start:end] {
			batch[j] = texts[idx]
		}

		vecs, err := g.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(batch) {
			return nil, upstream.Malformed(ServiceName, fmt.Errorf("got %d embeddings for %d texts", len(vecs), len(batch)))
		}
		g.logger.Debug("embedded batch", zap.Int("size", len(batch)), zap.Int("offset", start))

		for j, idx := range missing[start:end] {
			v := make([]float32, len(vecs[j]))
			copy(v, vecs[j])
			utils.NormalizeL2(v)
			out[idx] = v
			if g.cache != nil {
				g.cache.Put(texts[idx], v)
			}
		}
	}

	for i := 1; i < len(out); i++ {
		if len(out[i]) != len(out[0]) {
			return nil, upstream.Malformed(ServiceName, fmt.Errorf("inconsistent embedding lengths %d and %d", len(out[0]), len(out[i])))
		}
	}
	if len(out) > 0 && len(out[0]) == 0 {
		return nil, upstream.Malformed(ServiceName, fmt.Errorf("empty embedding"))
	}
	return out, nil
}

// Embed returns the normalized vector for a single text.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Probe embeds a fixed text and returns the vector length.
func (g *Gateway) Probe(ctx context.Context) (int, error) {
	v, err := g.Embed(ctx, probeText)
	if err != nil {
		return 0, err
	}
	return len(v), nil
}

// Dimensions returns the backend's declared dimension.
func (g *Gateway) Dimensions() int {
	return g.embedder.Dimensions()
}

// Close closes the backend.
func (g *Gateway) Close() error {
	return g.embedder.Close()
}
