package keyword

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/kljensen/snowball/english"
)

// Lemmatizer reduces a lowercase word to its canonical base form.
type Lemmatizer interface {
	Lemma(word string) string
}

// Lemmatizer names accepted by NewLemmatizer.
const (
	LemmatizerNoun     = "noun"
	LemmatizerSnowball = "snowball"
	LemmatizerPorter   = "porter"
)

// NewLemmatizer returns the lemmatizer registered under name. An empty name selects the noun lemmatizer.
func NewLemmatizer(name string) (Lemmatizer, error) {
	switch strings.ToLower(name) {
	case "", LemmatizerNoun:
		return NewNounLemmatizer(), nil
	case LemmatizerSnowball:
		return SnowballLemmatizer{}, nil
	case LemmatizerPorter:
		return NewPorterLemmatizer(), nil
	default:
		return nil, fmt.Errorf("unknown lemmatizer %q", name)
	}
}

// NounLemmatizer reduces plural nouns to their singular form using
// dictionary-style suffix rules and an irregular-forms table.
// Words that are not plural nouns pass through unchanged.
type NounLemmatizer struct {
	irregular map[string]string
}

var irregularNouns = map[string]string{
	"leaves":   "leaf",
	"loaves":   "loaf",
	"halves":   "half",
	"knives":   "knife",
	"calves":   "calf",
	"shelves":  "shelf",
	"children": "child",
	"teeth":    "tooth",
	"feet":     "foot",
	"geese":    "goose",
	"mice":     "mouse",
	"men":      "man",
	"women":    "woman",
	"people":   "person",
	"potatoes": "potato",
	"tomatoes": "tomato",
	"mangoes":  "mango",
	"heroes":   "hero",
	"echoes":   "echo",
	"cookies":  "cookie",
	"brownies": "brownie",
	"pies":     "pie",
}

// invariantNouns end in "s" but are not plurals.
var invariantNouns = map[string]struct{}{
	"asparagus": {}, "couscous": {}, "hummus": {}, "molasses": {},
	"citrus": {}, "octopus": {}, "series": {}, "species": {}, "grits": {},
}

// NewNounLemmatizer creates the default lemmatizer.
func NewNounLemmatizer() *NounLemmatizer {
	return &NounLemmatizer{irregular: irregularNouns}
}

// Lemma returns the singular form of word.
func (l *NounLemmatizer) Lemma(word string) string {
	if base, ok := l.irregular[word]; ok {
		return base
	}
	if _, ok := invariantNouns[word]; ok {
		return word
	}
	n := len(word)
	switch {
	case n <= 3:
		return word
	case strings.HasSuffix(word, "ies") && n > 4:
		return word[:n-3] + "y"
	case strings.HasSuffix(word, "sses"),
		strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "ches"),
		strings.HasSuffix(word, "xes"),
		strings.HasSuffix(word, "zzes"):
		return word[:n-2]
	case strings.HasSuffix(word, "ss"),
		strings.HasSuffix(word, "us"),
		strings.HasSuffix(word, "is"),
		strings.HasSuffix(word, "ous"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:n-1]
	}
	return word
}

// SnowballLemmatizer stems words with the English Snowball algorithm.
type SnowballLemmatizer struct{}

// Lemma returns the Snowball stem of word.
func (SnowballLemmatizer) Lemma(word string) string {
	return english.Stem(word, false)
}

// PorterLemmatizer stems words with bleve's Porter token filter.
type PorterLemmatizer struct {
	filter analysis.TokenFilter
}

// NewPorterLemmatizer creates a Porter stemmer.
func NewPorterLemmatizer() *PorterLemmatizer {
	return &PorterLemmatizer{filter: porter.NewPorterStemmer()}
}

// Lemma returns the Porter stem of word.
func (p *PorterLemmatizer) Lemma(word string) string {
	out := p.filter.Filter(analysis.TokenStream{{Term: []byte(word)}})
	if len(out) == 0 {
		return word
	}
	return string(out[0].Term)
}
