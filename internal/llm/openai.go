package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/upstream"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient sends the prompt as a single user message to a chat
// completions endpoint.
type OpenAIClient struct {
	client    openai.Client
	model     string
	maxTokens int
	limiter   *rate.Limiter
}

func newOpenAI(cfg config.LLMConfig, timeout time.Duration, maxTokens int, limiter *rate.Limiter) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(2),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.URL != "" {
		opts = append(opts, option.WithBaseURL(cfg.URL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		limiter:   limiter,
	}
}

// Complete returns the first choice's message content.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := wait(ctx, c.limiter); err != nil {
		return "", err
	}
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:     openai.ChatModel(c.model),
		MaxTokens: openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		return "", upstream.FromOpenAI(ServiceName, err)
	}
	if len(resp.Choices) == 0 {
		return "", upstream.Malformed(ServiceName, fmt.Errorf("no choices in completion"))
	}
	return resp.Choices[0].Message.Content, nil
}
