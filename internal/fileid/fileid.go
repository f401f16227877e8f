// Package fileid derives stable content identifiers for ingested documents.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
)

const prefix = "sha256:"

// ContentHash returns the identifier of content. Identical bytes always
// yield the same identifier regardless of file name.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return prefix + hex.EncodeToString(sum[:])
}
