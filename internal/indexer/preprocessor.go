package indexer

import (
	"strings"
	"unicode"
)

// Clean collapses every whitespace run (newlines included) to a single space
// and trims both ends. Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}
