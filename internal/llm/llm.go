// Package llm sends assembled prompts to a language model backend.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/kotae/internal/config"
)

// ServiceName labels language-model failures in upstream errors.
const ServiceName = "llm"

// Client completes a prompt. Remote failures are returned as *upstream.Error.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Option configures a backend built by New.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *zap.Logger
	ollamaURL  string
}

// WithHTTPClient replaces the HTTP client used by the HTTP backends.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOllamaURL overrides the default Ollama endpoint.
func WithOllamaURL(url string) Option {
	return func(o *options) { o.ollamaURL = url }
}

// New returns the backend selected by cfg.Kind.
func New(cfg config.LLMConfig, opts ...Option) (Client, error) {
	o := options{logger: zap.NewNop(), ollamaURL: DefaultOllamaURL}
	for _, opt := range opts {
		opt(&o)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultLLMTimeout * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = config.DefaultLLMMaxTokens
	}
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	base := httpBackend{
		client:    httpClient,
		apiKey:    cfg.APIKey,
		maxTokens: maxTokens,
		limiter:   newLimiter(cfg.RequestsPerSec),
		logger:    o.logger,
	}

	switch cfg.Kind {
	case config.LLMOllama:
		return newOllama(base, cfg, o.ollamaURL), nil
	case config.LLMHF:
		if cfg.URL == "" {
			return nil, &config.ConfigError{Field: "llm.url", Reason: "RAG_LLM_URL is required for kind \"hf\""}
		}
		return &HFClient{httpBackend: base, url: cfg.URL}, nil
	case config.LLMCustom:
		if cfg.URL == "" {
			return nil, &config.ConfigError{Field: "llm.url", Reason: "RAG_LLM_URL is required for kind \"custom\""}
		}
		return &CustomClient{httpBackend: base, url: cfg.URL}, nil
	case config.LLMOpenAI:
		return newOpenAI(cfg, timeout, maxTokens, base.limiter), nil
	default:
		return nil, &config.ConfigError{Field: "llm.kind", Reason: fmt.Sprintf("unsupported kind %q", cfg.Kind)}
	}
}

// newLimiter returns nil (unlimited) for a non-positive rate.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}
