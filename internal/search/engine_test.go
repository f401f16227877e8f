package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/knowledge"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/upstream"
)

type recordingLLM struct {
	prompts []string
	answer  string
	err     error
}

func (r *recordingLLM) Complete(_ context.Context, prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	return r.answer, r.err
}

type fixedStore struct {
	size    uint64
	results []models.SearchResult
}

func (f *fixedStore) Size() uint64 { return f.size }

func (f *fixedStore) Search([]float32, int) ([]models.SearchResult, error) {
	return f.results, nil
}

// staticEmbedder returns fixed vectors for known texts and mock vectors for
// anything else.
type staticEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback *embedding.MockEmbedder
	calls    int
}

func newStaticEmbedder(vectors map[string][]float32) *staticEmbedder {
	return &staticEmbedder{vectors: vectors, fallback: embedding.NewMockEmbedder(2)}
}

func (e *staticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.vectors[t]; ok {
			out[i] = append([]float32(nil), v...)
			continue
		}
		v, err := e.fallback.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *staticEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *staticEmbedder) Dimensions() int { return 2 }

func (e *staticEmbedder) Close() error { return nil }

func toyVectors() map[string][]float32 {
	return map[string][]float32{
		"the quick brown": {1, 0},
		"lazy dog":        {0, 1},
		"what is quick?":  {1, 0},
	}
}

func newToyEngine(t *testing.T, client *recordingLLM) (*Engine, *knowledge.Store, *staticEmbedder) {
	t.Helper()
	backend := newStaticEmbedder(toyVectors())
	gw := embedding.NewGateway(backend)
	store := knowledge.NewStore(t.TempDir(), gw)
	require.NoError(t, store.Init(context.Background()))
	var c llm.Client
	if client != nil {
		c = client
	}
	return NewEngine(store, gw, c), store, backend
}

func TestEngine_RetrieveToyScenario(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newToyEngine(t, nil)
	_, err := store.Add(ctx, "A", []string{"the quick brown"})
	require.NoError(t, err)
	_, err = store.Add(ctx, "B", []string{"lazy dog"})
	require.NoError(t, err)

	results, err := engine.Retrieve(ctx, "what is quick?", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "0", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "A", results[0].SourceOrEmpty())
	assert.Equal(t, "the quick brown", results[0].TextOrEmpty())
}

func TestEngine_RetrieveOrdersBestFirst(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newToyEngine(t, nil)
	_, err := store.Add(ctx, "A", []string{"lazy dog", "the quick brown"})
	require.NoError(t, err)

	results, err := engine.Retrieve(ctx, "what is quick?", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].ID)
	assert.Equal(t, "0", results[1].ID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestEngine_RetrieveEmptyStoreSkipsEmbedding(t *testing.T) {
	engine, _, backend := newToyEngine(t, nil)
	before := backend.Calls()

	results, err := engine.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, before, backend.Calls())
}

func TestEngine_AnswerEmptyStore(t *testing.T) {
	client := &recordingLLM{answer: "unused"}
	engine, _, _ := newToyEngine(t, client)

	_, ok, err := engine.Answer(context.Background(), models.QueryRequest{Question: "hi"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, client.prompts)
}

func TestEngine_AnswerBuildsPrompt(t *testing.T) {
	ctx := context.Background()
	client := &recordingLLM{answer: "It is brown [source:A chunk:0]."}
	engine, store, _ := newToyEngine(t, client)
	_, err := store.Add(ctx, "A", []string{"the quick brown"})
	require.NoError(t, err)

	resp, ok, err := engine.Answer(ctx, models.QueryRequest{Question: "  what is quick?  ", TopK: 3})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, client.answer, resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "A", resp.Sources[0].SourceOrEmpty())

	require.Len(t, client.prompts, 1)
	p := client.prompts[0]
	assert.Contains(t, p, "Source: A (score: 1.0000, id: 0)")
	assert.Contains(t, p, "QUESTION:\nwhat is quick?\n")
	assert.True(t, strings.HasSuffix(p, "Answer with source citations like [source:filename chunk:idx]."))
}

func TestEngine_AnswerRejectsBlankQuestion(t *testing.T) {
	engine, _, _ := newToyEngine(t, &recordingLLM{})
	_, _, err := engine.Answer(context.Background(), models.QueryRequest{Question: "   "})
	assert.ErrorIs(t, err, models.ErrEmptyQuestion)
}

func TestEngine_AnswerPropagatesUpstreamError(t *testing.T) {
	ctx := context.Background()
	client := &recordingLLM{err: &upstream.Error{Service: "llm", StatusCode: 503, Message: "overloaded"}}
	engine, store, _ := newToyEngine(t, client)
	_, err := store.Add(ctx, "A", []string{"the quick brown"})
	require.NoError(t, err)

	_, ok, err := engine.Answer(ctx, models.QueryRequest{Question: "what is quick?"})
	assert.False(t, ok)
	var uerr *upstream.Error
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, 503, uerr.StatusCode)
}

func TestEngine_AnswerMissingMetadataRendersUnknown(t *testing.T) {
	client := &recordingLLM{answer: "ok"}
	store := &fixedStore{size: 1, results: []models.SearchResult{{ID: "7", Score: 0.5}}}
	engine := NewEngine(store, embedding.NewGateway(embedding.NewMockEmbedder(2)), client)

	resp, ok, err := engine.Answer(context.Background(), models.QueryRequest{Question: "q"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, resp.Sources[0].Source)
	assert.Contains(t, client.prompts[0], "Source: unknown (score: 0.5000, id: 7)")
}
