package embedding

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/pkg/utils"
)

// NewBackend creates the embedder selected by cfg.Backend.
// Supported backends: "onnx" (default), "mock", "ollama", "openai".
// ONNX requires CGO and the onnxruntime library; when the model cannot be
// loaded the mock embedder is used instead and a warning is logged.
func NewBackend(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	logger = utils.NopIfNil(logger)
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Backend {
	case config.EmbeddingMock:
		logger.Info("using mock embeddings", zap.Int("dimensions", cfg.Dimensions))
		return NewMockEmbedder(cfg.Dimensions), nil
	case config.EmbeddingONNX, "":
		e, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			logger.Warn("onnx embedder unavailable, falling back to mock embeddings",
				zap.String("model_path", cfg.ModelPath),
				zap.Error(err),
			)
			return NewMockEmbedder(cfg.Dimensions), nil
		}
		return e, nil
	case config.EmbeddingOllama:
		return NewOllamaEmbedder(OllamaConfig{
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Timeout:           timeout,
			MaxRetries:        3,
			RequestsPerSecond: cfg.RequestsPerSec,
			Logger:            logger,
		}), nil
	case config.EmbeddingOpenAI:
		return NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Timeout:    timeout,
			MaxRetries: 3,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend: %s (supported: mock, onnx, ollama, openai)", cfg.Backend)
	}
}

// New creates the configured backend wrapped in a Gateway.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (*Gateway, error) {
	backend, err := NewBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewGateway(backend,
		WithBatchSize(cfg.BatchSize),
		WithCache(cfg.CacheSize),
		WithLogger(logger),
	), nil
}
