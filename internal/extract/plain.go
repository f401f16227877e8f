package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as text. Invalid UTF-8 is replaced.
func extractPlain(_ context.Context, content []byte) (string, error) {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "\uFFFD"), nil
	}
	return string(content), nil
}

// extractCSV renders every record, header included, as a comma-joined line.
func extractCSV(ctx context.Context, content []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var b strings.Builder
	for line := 1; ; line++ {
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return "", err
			}
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read CSV record %d: %w", line, err)
		}
		b.WriteString(strings.Join(record, ","))
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String()), nil
}
