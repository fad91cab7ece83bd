package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultMaxTokens is the model input length when none is configured.
const DefaultMaxTokens = 256

// BERT special token ids and vocabulary layout.
const (
	clsTokenID  = 101
	sepTokenID  = 102
	vocabSize   = 30522
	firstWordID = 1000
)

// Encoding is a tokenized model input padded to a fixed length.
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
	// Length counts the unpadded positions, [CLS] and [SEP] included.
	Length int
}

// Tokenizer turns text into a fixed-length BERT-style model input.
type Tokenizer interface {
	Encode(text string, maxTokens int) Encoding
}

// HashTokenizer maps every word to a vocabulary id by hashing, so it needs no vocabulary file.
type HashTokenizer struct{}

// Encode wraps the words of text in [CLS] ... [SEP], truncating to maxTokens.
func (HashTokenizer) Encode(text string, maxTokens int) Encoding {
	if maxTokens < 2 {
		maxTokens = DefaultMaxTokens
	}
	enc := Encoding{
		InputIDs:      make([]int64, maxTokens),
		AttentionMask: make([]int64, maxTokens),
		TokenTypeIDs:  make([]int64, maxTokens),
	}
	enc.InputIDs[0] = clsTokenID
	enc.AttentionMask[0] = 1

	pos := 1
	for _, word := range Words(text) {
		if pos >= maxTokens-1 {
			break
		}
		enc.InputIDs[pos] = firstWordID + int64(hashWord(word)%(vocabSize-firstWordID))
		enc.AttentionMask[pos] = 1
		pos++
	}
	enc.InputIDs[pos] = sepTokenID
	enc.AttentionMask[pos] = 1
	enc.Length = pos + 1
	return enc
}

// Words lowercases text and splits it on every rune that is neither a letter nor a digit.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// hashWord returns the 32-bit FNV-1a hash of word.
func hashWord(word string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(word))
	return h.Sum32()
}
