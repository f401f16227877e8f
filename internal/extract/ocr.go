//go:build ocr

package extract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// extractImage runs Tesseract OCR over the image.
func extractImage(_ context.Context, content []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetImageFromBytes(content); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return text, nil
}
