package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// BERT special token ids and vocabulary size shared by MiniLM-style models.
const (
	clsToken  = 101
	sepToken  = 102
	vocabSize = 30522
	// firstWordToken skips the reserved and special ids at the start of the vocabulary.
	firstWordToken = 999
)

// Tokenizer produces the three fixed-length inputs a BERT-style model expects.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// HashTokenizer maps lowercased words and punctuation marks to vocabulary ids
// by hashing. It has no vocabulary file, so ids only approximate the model's.
type HashTokenizer struct{}

// Tokenize returns [CLS] tokens... [SEP] padded with zeros to maxTokens.
// Tokens that do not fit are dropped.
func (HashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0], attentionMask[0] = clsToken, 1
	pos := 1
	for _, tok := range splitTokens(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = tokenID(tok)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos], attentionMask[pos] = sepToken, 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// splitTokens lowercases text and splits it on whitespace, emitting each
// punctuation rune as its own token.
func splitTokens(text string) []string {
	var out []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		start := 0
		for i, r := range word {
			if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
				continue
			}
			if i > start {
				out = append(out, word[start:i])
			}
			out = append(out, string(r))
			start = i + len(string(r))
		}
		if start < len(word) {
			out = append(out, word[start:])
		}
	}
	return out
}

func tokenID(tok string) int64 {
	return firstWordToken + int64(HashString(tok)%(vocabSize-firstWordToken))
}

// HashString returns a stable non-negative FNV-1a hash of s.
func HashString(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() & 0x7fffffff)
}
