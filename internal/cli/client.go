package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrIndexEmpty is returned by Client.Query when the server has nothing indexed.
var ErrIndexEmpty = errors.New("index is empty, upload documents first")

// Client talks to a running kotae server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Query asks the server a question.
func (c *Client) Query(ctx context.Context, req models.QueryRequest) (models.QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return models.QueryResponse{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return models.QueryResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return models.QueryResponse{}, fmt.Errorf("query server: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out models.QueryResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return models.QueryResponse{}, fmt.Errorf("decode response: %w", err)
		}
		return out, nil
	case http.StatusNotFound:
		return models.QueryResponse{}, ErrIndexEmpty
	default:
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return models.QueryResponse{}, fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
	}
}
