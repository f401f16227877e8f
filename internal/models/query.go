package models

import (
	"errors"
	"strings"
)

// DefaultTopK is the number of context chunks retrieved when a query does not say.
const DefaultTopK = 5

// MaxTopK bounds the number of context chunks a single query may request.
const MaxTopK = 100

// ErrEmptyQuestion is returned by QueryRequest.Validate for a blank question.
var ErrEmptyQuestion = errors.New("question cannot be empty")

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// Validate trims the question and normalizes TopK.
func (q *QueryRequest) Validate() error {
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return ErrEmptyQuestion
	}
	if q.TopK <= 0 {
		q.TopK = DefaultTopK
	}
	if q.TopK > MaxTopK {
		q.TopK = MaxTopK
	}
	return nil
}

// QueryResponse is the answer together with the context it was built from.
type QueryResponse struct {
	Answer  string         `json:"answer"`
	Sources []SearchResult `json:"sources"`
}
