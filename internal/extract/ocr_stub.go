//go:build !ocr

package extract

import (
	"context"
	"errors"
)

// ErrOCRUnavailable is returned for images when the binary was built without OCR.
var ErrOCRUnavailable = errors.New("image text extraction requires a build with -tags ocr")

func extractImage(context.Context, []byte) (string, error) {
	return "", ErrOCRUnavailable
}
