// Package search provides the hybrid merge and the query engine over an installed index snapshot.
package search

import (
	"sort"

	"github.com/hyperjump/mise/internal/models"
)

// FusedResult holds a recipe id with its combined and partial scores.
type FusedResult struct {
	ID            string
	Score         float64
	SemanticScore float64
	LexicalScore  float64
	Distance      float64
}

// Merge weights each semantic hit by semanticWeight and each lexical hit by lexicalWeight,
// sums the partial scores of recipes present in both lists, and returns the union ordered
// by descending combined score, then ascending id.
func Merge(semantic []models.SemanticHit, lexical []models.TextHit, semanticWeight, lexicalWeight float64) []*FusedResult {
	scoreMap := make(map[string]*FusedResult, len(semantic)+len(lexical))
	for _, h := range semantic {
		scoreMap[h.ID] = &FusedResult{
			ID:            h.ID,
			SemanticScore: h.Score,
			Distance:      h.Distance,
		}
	}
	for _, h := range lexical {
		if result, exists := scoreMap[h.ID]; exists {
			result.LexicalScore = h.Score
		} else {
			scoreMap[h.ID] = &FusedResult{
				ID:           h.ID,
				LexicalScore: h.Score,
			}
		}
	}
	results := make([]*FusedResult, 0, len(scoreMap))
	for _, result := range scoreMap {
		result.Score = (semanticWeight * result.SemanticScore) + (lexicalWeight * result.LexicalScore)
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	return results
}
