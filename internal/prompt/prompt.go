// Package prompt renders a question and its retrieved context into a single
// instruction for the language model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// MaxChunkChars is the longest context text included verbatim; longer text
// is cut and marked with an ellipsis.
const MaxChunkChars = 2000

// Instruction opens every prompt.
const Instruction = "You are a helpful assistant. Use the provided context to answer the question. " +
	"If the answer is not contained in the context, say you don't know. " +
	"Provide concise, factual answers and cite sources by filename and chunk index."

// CitationFormat closes every prompt.
const CitationFormat = "Answer with source citations like [source:filename chunk:idx]."

// unknownSource stands in for a result whose metadata is missing.
const unknownSource = "unknown"

// Build renders question and context in order. The output depends only on
// its inputs.
func Build(question string, context []models.SearchResult) string {
	lines := make([]string, 0, 4+3*len(context))
	lines = append(lines, Instruction, "\nCONTEXT:\n")
	for _, c := range context {
		source := c.SourceOrEmpty()
		if c.Source == nil {
			source = unknownSource
		}
		lines = append(lines,
			fmt.Sprintf("Source: %s (score: %.4f, id: %s)", source, c.Score, c.ID),
			utils.Truncate(c.TextOrEmpty(), MaxChunkChars),
			"\n",
		)
	}
	lines = append(lines, "\nQUESTION:\n"+question, "\n"+CitationFormat)
	return strings.Join(lines, "\n")
}
