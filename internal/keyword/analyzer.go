package keyword

import (
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	unicodetok "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// MinTermLength is the shortest term kept by the analyzer, in runes.
const MinTermLength = 2

// CulinaryStopWords are domain words too common in recipes to discriminate between them.
var CulinaryStopWords = []string{
	"recipe", "make", "prepare", "cook", "serve", "ingredient", "step",
	"minute", "hour", "cup", "tablespoon", "teaspoon", "gram", "ounce", "optional",
}

// Analyzer turns text into normalized index terms:
// lowercase, tokenize, strip non-alphanumerics, drop short tokens and stop words, lemmatize.
// An Analyzer is immutable and safe for concurrent use.
type Analyzer struct {
	tokenizer  analysis.Tokenizer
	lowercase  analysis.TokenFilter
	stopWords  map[string]struct{}
	lemmatizer Lemmatizer
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithLemmatizer sets the lemmatizer. Nil keeps the default NounLemmatizer.
func WithLemmatizer(l Lemmatizer) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.lemmatizer = l
		}
	}
}

// WithStopWords adds stop words on top of the English and culinary lists.
func WithStopWords(words ...string) AnalyzerOption {
	return func(a *Analyzer) {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				a.stopWords[w] = struct{}{}
			}
		}
	}
}

// NewAnalyzer creates an analyzer with the English and culinary stop lists.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		tokenizer:  unicodetok.NewUnicodeTokenizer(),
		lowercase:  lowercase.NewLowerCaseFilter(),
		stopWords:  englishStopWords(),
		lemmatizer: NewNounLemmatizer(),
	}
	for _, w := range CulinaryStopWords {
		a.stopWords[w] = struct{}{}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func englishStopWords() map[string]struct{} {
	tm := analysis.NewTokenMap()
	// LoadBytes only fails on reader errors, which a byte slice never produces.
	_ = tm.LoadBytes(en.EnglishStopWords)
	out := make(map[string]struct{}, len(tm))
	for w := range tm {
		out[w] = struct{}{}
	}
	return out
}

// Analyze returns the normalized terms of text in order of appearance, duplicates included.
func (a *Analyzer) Analyze(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	stream := a.lowercase.Filter(a.tokenizer.Tokenize([]byte(text)))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		word := stripNonAlphanumeric(string(tok.Term))
		if len([]rune(word)) < MinTermLength || a.IsStopWord(word) {
			continue
		}
		lemma := a.lemmatizer.Lemma(word)
		if len([]rune(lemma)) < MinTermLength {
			continue
		}
		terms = append(terms, lemma)
	}
	return terms
}

// Terms returns the distinct normalized terms of text in order of first appearance.
func (a *Analyzer) Terms(text string) []string {
	return dedupe(a.Analyze(text))
}

// IsStopWord reports whether word is in the stop list.
func (a *Analyzer) IsStopWord(word string) bool {
	_, ok := a.stopWords[word]
	return ok
}

func stripNonAlphanumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func dedupe(terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
