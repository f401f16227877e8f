// Package extract turns uploaded documents into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoText is wrapped by ExtractionError when a document parses but holds no text.
var ErrNoText = errors.New("no text found")

// ExtractionError reports a single document that could not be turned into
// text. It never affects other documents of the same batch.
type ExtractionError struct {
	Source string
	Kind   DocumentKind
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s (%s): %v", e.Source, e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Strategy converts the raw bytes of one document kind to text.
type Strategy func(ctx context.Context, content []byte) (string, error)

// Extractor dispatches documents to a Strategy by DocumentKind.
type Extractor struct {
	strategies map[DocumentKind]Strategy
}

// NewExtractor returns an Extractor with every built-in strategy registered.
func NewExtractor() *Extractor {
	return &Extractor{strategies: map[DocumentKind]Strategy{
		KindText:   extractPlain,
		KindCSV:    extractCSV,
		KindPDF:    extractPDF,
		KindDOCX:   extractDOCX,
		KindXLSX:   extractExcel,
		KindPPTX:   extractPPTX,
		KindODT:    extractCat,
		KindRTF:    extractCat,
		KindODP:    extractODP,
		KindODS:    extractODS,
		KindSQLite: extractSQLite,
		KindImage:  extractImage,
	}}
}

// Register replaces the strategy for kind.
func (e *Extractor) Register(kind DocumentKind, s Strategy) {
	e.strategies[kind] = s
}

// Extract reads the file at path and returns its text.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", &ExtractionError{Source: filepath.Base(path), Kind: KindOf(path, nil), Err: err}
	}
	return e.ExtractBytes(ctx, filepath.Base(path), content)
}

// ExtractBytes returns the text of content, choosing a strategy from name
// and content. Failures, including documents without text, are returned as
// *ExtractionError.
func (e *Extractor) ExtractBytes(ctx context.Context, name string, content []byte) (string, error) {
	kind := KindOf(name, content)
	strategy, ok := e.strategies[kind]
	if !ok {
		strategy = extractPlain
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := strategy(ctx, content)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", &ExtractionError{Source: name, Kind: kind, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &ExtractionError{Source: name, Kind: kind, Err: ErrNoText}
	}
	return text, nil
}
