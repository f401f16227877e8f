package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	docxDefaultPart     = "word/document.xml"
	contentTypesPart    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	pptxSlidePrefix     = "ppt/slides/slide"
)

var (
	wordText  = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	drawText  = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
	overrides = regexp.MustCompile(`<Override[^>]*/>`)
	partName  = regexp.MustCompile(`PartName="/?([^"]+)"`)
)

// docxMainPart finds the main document part declared in [Content_Types].xml.
// Attribute order varies between producers.
func docxMainPart(zr *zip.Reader) string {
	types, err := readZipEntry(zr, contentTypesPart)
	if err != nil {
		return docxDefaultPart
	}
	for _, o := range overrides.FindAll(types, -1) {
		if !bytes.Contains(o, []byte(`ContentType="`+docxMainContentType+`"`)) {
			continue
		}
		if m := partName.FindSubmatch(o); m != nil {
			return string(m[1])
		}
	}
	return docxDefaultPart
}

// extractDOCX collects every <w:t> run so paragraph and run attributes do
// not hide text.
func extractDOCX(_ context.Context, content []byte) (string, error) {
	zr, err := openZip(content)
	if err != nil {
		return "", err
	}
	xml, err := readZipEntry(zr, docxMainPart(zr))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	joinMatches(&b, xml, wordText)
	return b.String(), nil
}

// extractPPTX collects every <a:t> run, slide by slide in slide order.
func extractPPTX(ctx context.Context, content []byte) (string, error) {
	zr, err := openZip(content)
	if err != nil {
		return "", err
	}
	var slides []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, pptxSlidePrefix) && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}
	sort.Slice(slides, func(i, j int) bool {
		return slideNumber(slides[i].Name) < slideNumber(slides[j].Name)
	})

	var b strings.Builder
	for _, f := range slides {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		xml, err := readZipFile(f)
		if err != nil {
			return "", err
		}
		joinMatches(&b, xml, drawText)
	}
	return b.String(), nil
}

func slideNumber(name string) int {
	n := 0
	_, _ = fmt.Sscanf(strings.TrimPrefix(name, pptxSlidePrefix), "%d", &n)
	return n
}

// extractExcel renders each sheet row as tab-separated cells.
func extractExcel(ctx context.Context, content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String()), nil
}
