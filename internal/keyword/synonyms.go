package keyword

// culinarySynonyms maps a base ingredient word to related words searched alongside it.
// Values are raw words; they pass through the analyzer before use.
var culinarySynonyms = map[string][]string{
	"beef":    {"steak", "meat"},
	"chicken": {"poultry"},
	"pork":    {"bacon", "ham"},
	"onion":   {"shallot"},
	"garlic":  {"clove"},
	"tomato":  {"tomatoes"},
	"cheese":  {"cheeses"},
	"butter":  {"butters"},
	"oil":     {"oils", "olive oil"},
	"salt":    {"salty"},
	"pepper":  {"black pepper"},
	"sugar":   {"sweet"},
	"egg":     {"eggs"},
	"rice":    {"rices"},
	"pasta":   {"noodle", "spaghetti"},
}

// ExpandQuery returns the query's normalized terms, repeats included, followed by
// the normalized terms of their culinary synonyms. A synonym term is added once and
// only when the query does not already contain it.
func (a *Analyzer) ExpandQuery(query string) []string {
	terms := a.Analyze(query)
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		seen[term] = struct{}{}
	}
	expanded := append([]string(nil), terms...)
	for _, term := range dedupe(terms) {
		for _, syn := range culinarySynonyms[term] {
			for _, st := range a.Analyze(syn) {
				if _, ok := seen[st]; ok {
					continue
				}
				seen[st] = struct{}{}
				expanded = append(expanded, st)
			}
		}
	}
	return expanded
}
