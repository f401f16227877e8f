package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/lu4p/cat"
)

const odfContentPart = "content.xml"

var (
	odfParagraph = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odfSpan      = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odfHeading   = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)
)

func extractODF(content []byte, patterns ...*regexp.Regexp) (string, error) {
	zr, err := openZip(content)
	if err != nil {
		return "", err
	}
	xml, err := readZipEntry(zr, odfContentPart)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	joinMatches(&b, xml, patterns...)
	return b.String(), nil
}

// extractODP reads paragraphs, spans, then headings of a presentation.
func extractODP(_ context.Context, content []byte) (string, error) {
	return extractODF(content, odfParagraph, odfSpan, odfHeading)
}

// extractODS reads the paragraphs and spans of spreadsheet cells.
func extractODS(_ context.Context, content []byte) (string, error) {
	return extractODF(content, odfParagraph, odfSpan)
}

// extractCat handles word-processor formats lu4p/cat understands (odt, rtf).
func extractCat(_ context.Context, content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return strings.TrimSpace(text), nil
}
