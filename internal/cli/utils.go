// Package cli renders command results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json"; anything else is an error.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// previewChars bounds the source text shown under an answer.
const previewChars = 200

// WriteAnswer writes an answer and the sources it was built from.
func WriteAnswer(w io.Writer, resp models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\n%s\n\n", strings.TrimSpace(resp.Answer))
	if len(resp.Sources) == 0 {
		return nil
	}
	fmt.Fprintf(w, "Sources (%d):\n", len(resp.Sources))
	for i, s := range resp.Sources {
		source := s.SourceOrEmpty()
		if s.Source == nil {
			source = "unknown"
		}
		fmt.Fprintf(w, "%2d. %s  score %.4f  id %s\n", i+1, source, s.Score, s.ID)
		if text := s.TextOrEmpty(); text != "" {
			fmt.Fprintf(w, "    %s\n", utils.Truncate(text, previewChars))
		}
	}
	return nil
}

// WriteUploadResults writes one line per file, sorted by name.
func WriteUploadResults(w io.Writer, results map[string]models.UploadResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, results)
	}
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	added, failed := 0, 0
	for _, name := range names {
		r := results[name]
		if r.OK() {
			added++
			fmt.Fprintf(w, "ok     %s (%d chunks)\n", name, *r.ChunksAdded)
			continue
		}
		failed++
		fmt.Fprintf(w, "error  %s: %s\n", name, r.Error)
	}
	fmt.Fprintf(w, "\n%d ingested, %d failed\n", added, failed)
	return nil
}

// WriteDocuments writes registry rows.
func WriteDocuments(w io.Writer, docs []*models.Document, format OutputFormat) error {
	if format == OutputJSON {
		if docs == nil {
			docs = []*models.Document{}
		}
		return writeJSON(w, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents ingested yet.")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(w, "%s  %-6s %6d chunks  %s\n",
			d.CreatedAt.Local().Format("2006-01-02 15:04"), d.Kind, d.Chunks, d.Source)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteStatus writes index and registry statistics.
func WriteStatus(w io.Writer, status models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "Vectors:          %d\n", status.Vectors)
	fmt.Fprintf(w, "Dimension:        %d\n", status.Dimension)
	fmt.Fprintf(w, "Documents:        %d\n", status.Documents)
	fmt.Fprintf(w, "Chunks:           %d\n", status.Chunks)
	fmt.Fprintf(w, "Index on disk:    %s\n", formatBytes(status.IndexDiskBytes))
	fmt.Fprintf(w, "Registry on disk: %s\n", formatBytes(status.DBDiskBytes))
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
