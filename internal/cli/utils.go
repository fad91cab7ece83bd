// Package cli provides output helpers for the Mise command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/mise/internal/models"
	"github.com/hyperjump/mise/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputCompact prints one line per result.
	OutputCompact OutputFormat = "compact"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	case OutputCompact:
		return OutputCompact, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or compact)", s)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return WriteJSON(w, response)
	case OutputCompact:
		for _, result := range response.Results {
			fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", result.Rank, result.Score, result.Recipe.ID, result.Recipe.Title)
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d %s results for %q in %dms\n", response.Count, response.SearchType, response.Query, response.QueryTime)
	if len(response.Degraded) > 0 {
		fmt.Fprintf(w, "Unavailable indexes skipped: %s\n", strings.Join(response.Degraded, ", "))
	}
	fmt.Fprintln(w)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f", result.Rank, result.Score)
	if result.SemanticScore > 0 || result.LexicalScore > 0 {
		fmt.Fprintf(w, " (Semantic: %.4f, Lexical: %.4f)", result.SemanticScore, result.LexicalScore)
	}
	fmt.Fprintln(w)
	writeRecipeSummary(w, result.Recipe)
}

// WriteRecipes writes a recipe list, as returned by a facet filter.
func WriteRecipes(w io.Writer, recipes []*models.Recipe, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return WriteJSON(w, recipes)
	case OutputCompact:
		for _, r := range recipes {
			fmt.Fprintf(w, "%s\t%s\n", r.ID, r.Title)
		}
		return nil
	default:
		fmt.Fprintf(w, "\n%d recipes\n\n", len(recipes))
		for _, r := range recipes {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			writeRecipeSummary(w, r)
		}
		return nil
	}
}

func writeRecipeSummary(w io.Writer, r *models.Recipe) {
	fmt.Fprintf(w, "%s (%s)\n", r.Title, r.ID)
	fmt.Fprintf(w, "%s | %s | %s | %d min\n", r.Country, r.Category, r.Difficulty, r.Duration.Total)
	if r.Description != "" {
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(r.Description, 200))
	}
	if len(r.Ingredients) > 0 {
		names := make([]string, 0, len(r.Ingredients))
		for _, ing := range r.Ingredients {
			names = append(names, ing.Item)
		}
		fmt.Fprintf(w, "Ingredients: %s\n", TruncateWords(strings.Join(names, ", "), 20))
	}
	fmt.Fprintln(w)
}

// WriteStats writes index statistics.
func WriteStats(w io.Writer, stats models.Stats, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, stats)
	}
	fmt.Fprintf(w, "Recipes:      %d\n", stats.Documents)
	if stats.BuildID != "" {
		fmt.Fprintf(w, "Build:        %s (%s)\n", stats.BuildID, stats.BuiltAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Lexical:      %d terms, %.1f terms/recipe\n", stats.Lexical.TotalTerms, stats.Lexical.AvgTermsPerDocument)
	fmt.Fprintf(w, "Facets:       %d countries, %d categories, %d ingredients\n",
		stats.Facets.TotalCountries, stats.Facets.TotalCategories, stats.Facets.TotalIngredients)
	if stats.Semantic.Size > 0 {
		fmt.Fprintf(w, "Semantic:     %d vectors, %d dims (%s)\n", stats.Semantic.Size, stats.Semantic.Dimension, stats.Semantic.Model)
	} else {
		fmt.Fprintln(w, "Semantic:     unavailable")
	}
	if len(stats.Lexical.TopTerms) > 0 {
		terms := make([]string, 0, len(stats.Lexical.TopTerms))
		for _, tf := range stats.Lexical.TopTerms {
			terms = append(terms, fmt.Sprintf("%s(%d)", tf.Term, tf.Frequency))
		}
		fmt.Fprintf(w, "Top terms:    %s\n", strings.Join(terms, " "))
	}
	return nil
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
