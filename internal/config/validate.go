package config

import (
	"fmt"
	"strings"
)

// Embedding backends.
const (
	EmbeddingMock   = "mock"
	EmbeddingONNX   = "onnx"
	EmbeddingOllama = "ollama"
	EmbeddingOpenAI = "openai"
)

// LLM kinds.
const (
	LLMOllama = "ollama"
	LLMHF     = "hf"
	LLMCustom = "custom"
	LLMOpenAI = "openai"
)

// ConfigError reports an invalid configuration value. It is fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// Validate checks cross-field constraints. Call after ApplyDefaults.
func (c *Config) Validate() error {
	switch c.LLM.Kind {
	case LLMOllama, LLMOpenAI:
	case LLMHF, LLMCustom:
		if strings.TrimSpace(c.LLM.URL) == "" {
			return &ConfigError{Field: "llm.url", Reason: fmt.Sprintf("RAG_LLM_URL is required for kind %q", c.LLM.Kind)}
		}
	default:
		return &ConfigError{Field: "llm.kind", Reason: fmt.Sprintf("unknown kind %q (want ollama, hf, custom or openai)", c.LLM.Kind)}
	}

	switch c.Embedding.Backend {
	case EmbeddingMock, EmbeddingONNX, EmbeddingOllama, EmbeddingOpenAI:
	default:
		return &ConfigError{Field: "embedding.backend", Reason: fmt.Sprintf("unknown backend %q", c.Embedding.Backend)}
	}
	if c.Embedding.BatchSize <= 0 {
		return &ConfigError{Field: "embedding.batch_size", Reason: "must be positive"}
	}

	size, overlap := c.Chunking.Size, c.Chunking.OverlapOrDefault()
	if size <= 0 {
		return &ConfigError{Field: "chunking.size", Reason: "must be positive"}
	}
	if overlap < 0 {
		return &ConfigError{Field: "chunking.overlap", Reason: "must not be negative"}
	}
	if overlap >= size {
		return &ConfigError{Field: "chunking.overlap", Reason: fmt.Sprintf("overlap %d must be smaller than size %d", overlap, size)}
	}
	return nil
}
