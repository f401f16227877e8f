// Package indexer cleans and chunks extracted text and feeds it to the knowledge store.
package indexer

import "strings"

// Chunk splits text on whitespace and returns windows of up to size tokens,
// starting a new window every size-overlap tokens until the start passes the
// last token. A negative overlap is treated as 0 and a non-positive step is
// clamped to 1. Empty input, or size <= 0, yields nil.
func Chunk(text string, size, overlap int) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 || size <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	step := size - overlap
	if step <= 0 {
		step = 1
	}
	chunks := make([]string, 0, (len(tokens)+step-1)/step)
	for start := 0; start < len(tokens); start += step {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[start:end], " "))
	}
	return chunks
}

// Chunker holds a fixed window configuration.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in tokens).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Split returns the windows of text.
func (c *Chunker) Split(text string) []string {
	return Chunk(text, c.chunkSize, c.chunkOverlap)
}
