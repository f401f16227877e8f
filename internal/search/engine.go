// Package search retrieves context for a question and turns it into an answer.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/prompt"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Store is the read side of the knowledge store.
type Store interface {
	Size() uint64
	Search(query []float32, k int) ([]models.SearchResult, error)
}

// QueryEmbedder embeds a single question.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Engine answers questions from the knowledge store.
type Engine struct {
	store    Store
	embedder QueryEmbedder
	llm      llm.Client
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = utils.NopIfNil(logger)
	}
}

// NewEngine creates an engine. client may be nil when only Retrieve is used.
func NewEngine(store Store, embedder QueryEmbedder, client llm.Client, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		embedder: embedder,
		llm:      client,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve returns up to topK stored chunks most similar to question, best
// first; topK <= 0 means models.DefaultTopK. An empty store yields no results
// without calling the embedder.
func (e *Engine) Retrieve(ctx context.Context, question string, topK int) ([]models.SearchResult, error) {
	if e.store.Size() == 0 {
		return []models.SearchResult{}, nil
	}
	if topK <= 0 {
		topK = models.DefaultTopK
	}
	q, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	results, err := e.store.Search(q, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return results, nil
}

// Answer retrieves context for req and asks the language model. ok is false
// when the store is empty; that is not an error.
func (e *Engine) Answer(ctx context.Context, req models.QueryRequest) (resp models.QueryResponse, ok bool, err error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return models.QueryResponse{}, false, err
	}
	if e.store.Size() == 0 {
		return models.QueryResponse{}, false, nil
	}
	if e.llm == nil {
		return models.QueryResponse{}, false, fmt.Errorf("no language model configured")
	}

	results, err := e.Retrieve(ctx, req.Question, req.TopK)
	if err != nil {
		return models.QueryResponse{}, false, err
	}
	answer, err := e.llm.Complete(ctx, prompt.Build(req.Question, results))
	if err != nil {
		return models.QueryResponse{}, false, err
	}

	e.logger.Debug("answered question",
		zap.Int("top_k", req.TopK),
		zap.Int("sources", len(results)),
		zap.Duration("elapsed", time.Since(start)))
	return models.QueryResponse{Answer: answer, Sources: results}, true, nil
}
