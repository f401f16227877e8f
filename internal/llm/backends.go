package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/hyperjump/kotae/internal/config"
)

// DefaultOllamaURL is the local Ollama generate endpoint.
const DefaultOllamaURL = "http://localhost:11434/api/generate"

// DefaultOllamaModel is used when neither a model nor a model-like URL is configured.
const DefaultOllamaModel = "meta-llama/llama-3.3-70b-instruct:free"

// OllamaClient calls the Ollama generate API.
type OllamaClient struct {
	httpBackend
	url   string
	model string
}

func newOllama(base httpBackend, cfg config.LLMConfig, defaultURL string) *OllamaClient {
	c := &OllamaClient{httpBackend: base, url: defaultURL, model: DefaultOllamaModel}
	// A non-URL RAG_LLM_URL names the model.
	if strings.HasPrefix(cfg.URL, "http://") || strings.HasPrefix(cfg.URL, "https://") {
		c.url = cfg.URL
	} else if cfg.URL != "" {
		c.model = cfg.URL
	}
	if cfg.Model != "" {
		c.model = cfg.Model
	}
	return c
}

type ollamaRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
	Stream    bool   `json:"stream"`
}

// Complete sends prompt to Ollama.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := c.post(ctx, c.url, ollamaRequest{Model: c.model, Prompt: prompt, MaxTokens: c.maxTokens}, http.StatusOK)
	if err != nil {
		return "", err
	}
	v, err := decode(body)
	if err != nil {
		return "", err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return raw(body), nil
	}
	for _, key := range []string{"text", "response"} {
		if s, ok := stringField(m, key); ok {
			return s, nil
		}
	}
	if choices, ok := m["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if msg, ok := choice["message"].(map[string]any); ok {
				if s, ok := stringField(msg, "content"); ok {
					return s, nil
				}
			}
			if s, ok := stringField(choice, "text"); ok {
				return s, nil
			}
		}
	}
	return raw(body), nil
}

// HFClient calls a Hugging Face inference endpoint.
type HFClient struct {
	httpBackend
	url string
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens int `json:"max_new_tokens"`
}

// Complete sends prompt to the inference endpoint.
func (c *HFClient) Complete(ctx context.Context, prompt string) (string, error) {
	req := hfRequest{Inputs: prompt, Parameters: hfParameters{MaxNewTokens: c.maxTokens}}
	body, err := c.post(ctx, c.url, req, http.StatusOK, http.StatusCreated)
	if err != nil {
		return "", err
	}
	v, err := decode(body)
	if err != nil {
		return "", err
	}
	switch out := v.(type) {
	case map[string]any:
		if s, ok := out["generated_text"].(string); ok {
			return s, nil
		}
	case []any:
		if len(out) > 0 {
			if first, ok := out[0].(map[string]any); ok {
				if s, ok := first["generated_text"].(string); ok {
					return s, nil
				}
			}
		}
	}
	return raw(body), nil
}

// CustomClient calls an arbitrary endpoint that accepts {prompt, max_tokens}
// and answers with {answer} or {text}.
type CustomClient struct {
	httpBackend
	url string
}

type customRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

// Complete sends prompt to the configured endpoint.
func (c *CustomClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := c.post(ctx, c.url, customRequest{Prompt: prompt, MaxTokens: c.maxTokens}, http.StatusOK, http.StatusCreated)
	if err != nil {
		return "", err
	}
	v, err := decode(body)
	if err != nil {
		return "", err
	}
	if m, ok := v.(map[string]any); ok {
		for _, key := range []string{"answer", "text"} {
			if s, ok := stringField(m, key); ok {
				return s, nil
			}
		}
	}
	return raw(body), nil
}
