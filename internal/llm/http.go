package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/kotae/internal/upstream"
)

// maxResponseBytes bounds how much of a backend response is read.
const maxResponseBytes = 8 << 20

// httpBackend holds what every JSON-over-HTTP backend shares.
type httpBackend struct {
	client    *http.Client
	apiKey    string
	maxTokens int
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// post sends payload as JSON and returns the response body when the status
// is one of accept.
func (b *httpBackend) post(ctx context.Context, url string, payload any, accept ...int) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal llm request: %w", err)
	}
	if err := wait(ctx, b.limiter); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, upstream.Transport(ServiceName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Warn("llm request failed", zap.String("url", url), zap.Error(err))
		return nil, upstream.Transport(ServiceName, err)
	}
	defer resp.Body.Close()

	ok := false
	for _, code := range accept {
		if resp.StatusCode == code {
			ok = true
			break
		}
	}
	if !ok {
		uerr := upstream.FromResponse(ServiceName, resp)
		b.logger.Warn("llm backend error", zap.String("url", url), zap.Int("status", resp.StatusCode), zap.String("message", uerr.Message))
		return nil, uerr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, upstream.Transport(ServiceName, err)
	}
	return body, nil
}

// decode parses body as JSON. Bodies that are not JSON are reported as malformed.
func decode(body []byte) (any, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, upstream.Malformed(ServiceName, err)
	}
	return v, nil
}

// stringField returns m[key] when it is a non-empty string.
func stringField(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok && s != ""
}

// raw returns the body as the answer when no known field matched.
func raw(body []byte) string {
	return strings.TrimSpace(string(body))
}
