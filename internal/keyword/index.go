// Package keyword provides the lexical inverted index: text normalization,
// document-frequency weighted term search, and term suggestions.
package keyword

import (
	"encoding/gob"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/mise/internal/models"
)

// TopTermsLimit is the number of terms reported by Stats.
const TopTermsLimit = 10

// Index is an immutable inverted index from normalized terms to recipe ids.
// Build it once with Build or Decode; it is safe for concurrent reads.
type Index struct {
	analyzer *Analyzer
	postings map[string]map[string]struct{}
	docTerms map[string][]string
	// terms holds every indexed term in ascending order for prefix lookups.
	terms  []string
	roster []string
}

// Build indexes the title, description, ingredients, tags and instructions of every recipe.
// A nil analyzer selects NewAnalyzer().
func Build(analyzer *Analyzer, recipes []*models.Recipe) *Index {
	if analyzer == nil {
		analyzer = NewAnalyzer()
	}
	ix := &Index{
		analyzer: analyzer,
		postings: make(map[string]map[string]struct{}),
		docTerms: make(map[string][]string, len(recipes)),
		roster:   make([]string, 0, len(recipes)),
	}
	for _, r := range recipes {
		terms := analyzer.Terms(recipeText(r))
		sort.Strings(terms)
		ix.docTerms[r.ID] = terms
		ix.roster = append(ix.roster, r.ID)
		for _, term := range terms {
			set, ok := ix.postings[term]
			if !ok {
				set = make(map[string]struct{})
				ix.postings[term] = set
			}
			set[r.ID] = struct{}{}
		}
	}
	sort.Strings(ix.roster)
	ix.sortTerms()
	return ix
}

func recipeText(r *models.Recipe) string {
	var b strings.Builder
	b.WriteString(r.Title)
	b.WriteByte('\n')
	b.WriteString(r.Description)
	for _, ing := range r.Ingredients {
		b.WriteByte('\n')
		b.WriteString(ing.Item)
		b.WriteByte(' ')
		b.WriteString(ing.Quantity)
	}
	for _, tag := range r.Tags {
		b.WriteByte('\n')
		b.WriteString(tag)
	}
	for _, step := range r.Instructions {
		b.WriteByte('\n')
		b.WriteString(step)
	}
	return b.String()
}

func (ix *Index) sortTerms() {
	ix.terms = make([]string, 0, len(ix.postings))
	for term := range ix.postings {
		ix.terms = append(ix.terms, term)
	}
	sort.Strings(ix.terms)
}

// Analyzer returns the analyzer the index was built with.
func (ix *Index) Analyzer() *Analyzer {
	return ix.analyzer
}

// Len returns the number of indexed recipes.
func (ix *Index) Len() int {
	return len(ix.roster)
}

// Roster returns the indexed recipe ids in ascending order.
func (ix *Index) Roster() []string {
	return ix.roster
}

// DocFrequency returns the size of the posting set for term.
func (ix *Index) DocFrequency(term string) int {
	return len(ix.postings[term])
}

// Search normalizes query and scores every recipe containing at least one query term
// by the sum of 1/(df+1) over the matching query terms; a repeated term adds its
// weight again. Results are ordered by descending score, then ascending id.
// topK <= 0 returns every match.
func (ix *Index) Search(query string, topK int) []models.TextHit {
	return ix.SearchTerms(ix.analyzer.Analyze(query), topK)
}

// SearchTerms scores already-normalized terms like Search.
func (ix *Index) SearchTerms(terms []string, topK int) []models.TextHit {
	scores := make(map[string]float64)
	for _, term := range terms {
		set, ok := ix.postings[term]
		if !ok {
			continue
		}
		w := 1.0 / float64(len(set)+1)
		for id := range set {
			scores[id] += w
		}
	}
	if len(scores) == 0 {
		return []models.TextHit{}
	}
	hits := make([]models.TextHit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, models.TextHit{ID: id, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// ExpandQuery returns the normalized query terms plus their culinary synonyms.
func (ix *Index) ExpandQuery(query string) []string {
	return ix.analyzer.ExpandQuery(query)
}

// Suggest returns indexed terms starting with prefix (case-insensitive), ordered by
// descending document frequency, then term. limit <= 0 returns every match.
func (ix *Index) Suggest(prefix string, limit int) []string {
	matches := prefixRange(ix.terms, strings.ToLower(strings.TrimSpace(prefix)))
	if len(matches) == 0 {
		return []string{}
	}
	out := append([]string(nil), matches...)
	sort.SliceStable(out, func(i, j int) bool {
		return len(ix.postings[out[i]]) > len(ix.postings[out[j]])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// prefixRange returns the run of sorted keys that start with prefix.
func prefixRange(sorted []string, prefix string) []string {
	if prefix == "" {
		return nil
	}
	start := sort.SearchStrings(sorted, prefix)
	end := start
	for end < len(sorted) && strings.HasPrefix(sorted[end], prefix) {
		end++
	}
	return sorted[start:end]
}

// DocTerms returns the distinct terms indexed for a recipe, sorted.
func (ix *Index) DocTerms(id string) ([]string, error) {
	terms, ok := ix.docTerms[id]
	if !ok {
		return nil, fmt.Errorf("recipe %q: %w", id, models.ErrNotFound)
	}
	return terms, nil
}

// Stats summarizes the index.
func (ix *Index) Stats() models.LexicalStats {
	stats := models.LexicalStats{
		TotalTerms:     len(ix.postings),
		TotalDocuments: len(ix.roster),
		TopTerms:       []models.TermFrequency{},
	}
	if len(ix.roster) > 0 {
		total := 0
		for _, terms := range ix.docTerms {
			total += len(terms)
		}
		stats.AvgTermsPerDocument = float64(total) / float64(len(ix.roster))
	}
	stats.TopTerms = topFrequencies(ix.terms, func(t string) int { return len(ix.postings[t]) }, TopTermsLimit)
	return stats
}

// topFrequencies ranks sorted keys by descending frequency, keeping key order on ties.
func topFrequencies(keys []string, freq func(string) int, limit int) []models.TermFrequency {
	out := make([]models.TermFrequency, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.TermFrequency{Term: k, Frequency: freq(k)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Frequency > out[j].Frequency })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// payload is the serialized form of an Index. Posting sets are sorted id slices.
type payload struct {
	Postings map[string][]string
	DocTerms map[string][]string
}

// Encode writes the index postings and per-recipe terms to w.
func (ix *Index) Encode(w io.Writer) error {
	p := payload{
		Postings: make(map[string][]string, len(ix.postings)),
		DocTerms: ix.docTerms,
	}
	for term, set := range ix.postings {
		p.Postings[term] = sortedIDs(set)
	}
	if err := gob.NewEncoder(w).Encode(&p); err != nil {
		return fmt.Errorf("failed to encode lexical index: %w", err)
	}
	return nil
}

// Decode reads an index written by Encode and checks that it covers exactly roster.
func Decode(r io.Reader, analyzer *Analyzer, roster []string) (*Index, error) {
	if analyzer == nil {
		analyzer = NewAnalyzer()
	}
	var p payload
	if err := gob.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode lexical index: %w", err)
	}
	known := make(map[string]struct{}, len(roster))
	for _, id := range roster {
		known[id] = struct{}{}
	}
	if len(p.DocTerms) != len(known) {
		return nil, fmt.Errorf("lexical index covers %d recipes, roster has %d", len(p.DocTerms), len(known))
	}
	for id := range p.DocTerms {
		if _, ok := known[id]; !ok {
			return nil, fmt.Errorf("lexical index references unknown recipe %q", id)
		}
	}

	ix := &Index{
		analyzer: analyzer,
		postings: make(map[string]map[string]struct{}, len(p.Postings)),
		docTerms: p.DocTerms,
		roster:   append([]string(nil), roster...),
	}
	if ix.docTerms == nil {
		ix.docTerms = make(map[string][]string)
	}
	for term, ids := range p.Postings {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				return nil, fmt.Errorf("lexical term %q references unknown recipe %q", term, id)
			}
			set[id] = struct{}{}
		}
		ix.postings[term] = set
	}
	sort.Strings(ix.roster)
	ix.sortTerms()
	return ix, nil
}

func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
