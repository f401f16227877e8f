package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/kotae/internal/upstream"
)

// DefaultOllamaURL is used when no base URL is configured.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaConfig configures OllamaEmbedder.
type OllamaConfig struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	// RequestsPerSecond limits outgoing requests; 0 means unlimited.
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

// OllamaEmbedder calls the Ollama /api/embed endpoint, retrying transient
// failures with exponential backoff.
type OllamaEmbedder struct {
	url        string
	model      string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	dimensions atomic.Int64
	logger     *zap.Logger
}

// NewOllamaEmbedder creates an embedder for an Ollama-compatible server.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultOllamaURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	e := &OllamaEmbedder{
		url:        base + "/api/embed",
		model:      cfg.Model,
		client:     client,
		maxRetries: retries,
		logger:     zap.NewNop(),
	}
	if cfg.Logger != nil {
		e.logger = cfg.Logger
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return e
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedBatch embeds texts in one request.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	var lastErr *upstream.Error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, lastDelay(lastErr, attempt-1)); err != nil {
				return nil, err
			}
			e.logger.Debug("retrying embed request", zap.Int("attempt", attempt), zap.Error(lastErr))
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		vecs, uerr, retry := e.do(ctx, body)
		if uerr == nil {
			if len(vecs) > 0 {
				e.dimensions.Store(int64(len(vecs[0])))
			}
			return vecs, nil
		}
		lastErr = uerr
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// do performs one request. retry reports whether the failure is transient.
func (e *OllamaEmbedder) do(ctx context.Context, body []byte) (vecs [][]float32, uerr *upstream.Error, retry bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, upstream.Transport(ServiceName, err), false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, upstream.Transport(ServiceName, err), true
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		uerr := upstream.FromResponse(ServiceName, resp)
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				uerr.Err = retryAfter(time.Duration(secs) * time.Second)
			}
		}
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, uerr, transient
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, upstream.Malformed(ServiceName, err), false
	}
	return out.Embeddings, nil, false
}

// Dimensions returns the length of the last embedding received, or 0.
func (e *OllamaEmbedder) Dimensions() int {
	return int(e.dimensions.Load())
}

// Close is a no-op.
func (e *OllamaEmbedder) Close() error {
	return nil
}

// retryAfter carries a server-requested delay inside an upstream error.
type retryAfter time.Duration

func (r retryAfter) Error() string {
	return "retry after " + time.Duration(r).String()
}

func lastDelay(err *upstream.Error, attempt int) time.Duration {
	if err != nil {
		if ra, ok := err.Err.(retryAfter); ok && ra > 0 {
			return time.Duration(ra)
		}
	}
	return retryDelay(attempt)
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
