package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperjump/mise/internal/cli"
	"github.com/hyperjump/mise/internal/models"
)

// Search modes accepted by --mode.
const (
	modeHybrid   = "hybrid"
	modeText     = "text"
	modeSemantic = "semantic"
)

// filterFlags holds the facet filter flags shared by search and filter.
type filterFlags struct {
	country            string
	category           string
	difficulty         string
	mealType           string
	cookingMethod      string
	maxTime            int
	ingredients        []string
	excludeIngredients []string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.country, "country", "", "only recipes from this country")
	fs.StringVar(&f.category, "category", "", "only recipes in this category")
	fs.StringVar(&f.difficulty, "difficulty", "", "only recipes with this difficulty")
	fs.StringVar(&f.mealType, "meal-type", "", "only recipes of this meal type")
	fs.StringVar(&f.cookingMethod, "cooking-method", "", "only recipes using this cooking method")
	fs.IntVar(&f.maxTime, "max-time", 0, "maximum total time in minutes")
	fs.StringSliceVar(&f.ingredients, "ingredient", nil, "required ingredient (repeatable or comma separated)")
	fs.StringSliceVar(&f.excludeIngredients, "exclude", nil, "excluded ingredient (repeatable or comma separated)")
}

// criteria converts the flags to filter criteria; nil when no flag is set.
func (f *filterFlags) criteria(cmd *cobra.Command) *models.FilterCriteria {
	c := &models.FilterCriteria{
		Country:            f.country,
		Category:           f.category,
		Difficulty:         f.difficulty,
		MealType:           f.mealType,
		CookingMethod:      f.cookingMethod,
		Ingredients:        f.ingredients,
		ExcludeIngredients: f.excludeIngredients,
	}
	if cmd.Flags().Changed("max-time") {
		maxTime := f.maxTime
		c.MaxTime = &maxTime
	}
	if c.IsEmpty() {
		return nil
	}
	return c
}

// encodeCriteria writes c as the HTTP API's filter query parameters.
func encodeCriteria(q url.Values, c *models.FilterCriteria) {
	if c == nil {
		return
	}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("country", c.Country)
	set("category", c.Category)
	set("difficulty", c.Difficulty)
	set("meal_type", c.MealType)
	set("cooking_method", c.CookingMethod)
	set("ingredients", strings.Join(c.Ingredients, ","))
	set("exclude_ingredients", strings.Join(c.ExcludeIngredients, ","))
	if c.MaxTime != nil {
		q.Set("max_time", strconv.Itoa(*c.MaxTime))
	}
}

func newSearchCmd(g *globalFlags) *cobra.Command {
	var (
		mode      string
		k         int
		format    string
		serverURL string
		filters   filterFlags
	)
	cmd := &cobra.Command{
		Use:   "search [flags] <query...>",
		Short: "Search recipes",
		Long: `Search recipes by free text. The query is all remaining arguments joined by spaces.

Modes:
  hybrid    weighted merge of semantic and lexical results, filters applied (default)
  text      lexical search only; filters are ignored
  semantic  embedding similarity, filters applied

Examples:
  mise search garlic pasta
  mise search --mode text "spicy chicken"
  mise search --country Italy --max-time 30 quick dinner
  mise search --server http://localhost:8080 noodles`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := cli.ParseFormat(format)
			if err != nil {
				return err
			}
			query := buildQuery(args)
			criteria := filters.criteria(cmd)

			var resp *models.SearchResponse
			if serverURL != "" {
				q := url.Values{}
				q.Set("q", query)
				switch mode {
				case modeText:
					if k > 0 {
						q.Set("top_k", strconv.Itoa(k))
					}
				case modeSemantic:
					if k > 0 {
						q.Set("k", strconv.Itoa(k))
					}
				}
				encodeCriteria(q, criteria)
				resp = &models.SearchResponse{}
				if err := getJSON(cmd.Context(), serverURL+"/api/search/"+mode+"?"+q.Encode(), resp); err != nil {
					return err
				}
			} else {
				resp, err = searchLocal(cmd.Context(), g, mode, query, k, criteria)
				if err != nil {
					return err
				}
			}
			return cli.WriteSearchResults(cmd.OutOrStdout(), resp, outFormat)
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", modeHybrid, "search mode: hybrid, text or semantic")
	cmd.Flags().IntVarP(&k, "limit", "k", 0, "number of results (default from search config)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or compact")
	cmd.Flags().StringVar(&serverURL, "server", "", "query a running server instead of local indexes")
	filters.register(cmd)
	return cmd
}

func searchLocal(ctx context.Context, g *globalFlags, mode, query string, k int, criteria *models.FilterCriteria) (*models.SearchResponse, error) {
	c, err := setup(g, false)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	if err := c.warmup(ctx); err != nil {
		return nil, err
	}
	switch mode {
	case modeHybrid:
		return c.engine.SearchHybrid(ctx, query, criteria)
	case modeText:
		if k <= 0 {
			k = c.cfg.Search.DefaultTopK
		}
		return c.engine.SearchText(query, k)
	case modeSemantic:
		return c.engine.SearchSemantic(ctx, query, k, criteria)
	default:
		return nil, fmt.Errorf("%w: unknown search mode %q", models.ErrInvalidInput, mode)
	}
}

func newSimilarCmd(g *globalFlags) *cobra.Command {
	var (
		k      int
		format string
	)
	cmd := &cobra.Command{
		Use:   "similar <recipe-id>",
		Short: "Find recipes similar to a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := cli.ParseFormat(format)
			if err != nil {
				return err
			}
			c, err := setup(g, false)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.warmup(cmd.Context()); err != nil {
				return err
			}
			resp, err := c.engine.FindSimilar(cmd.Context(), args[0], k)
			if err != nil {
				return err
			}
			return cli.WriteSearchResults(cmd.OutOrStdout(), resp, outFormat)
		},
	}
	cmd.Flags().IntVarP(&k, "limit", "k", 0, "number of results (default search.similar_k)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or compact")
	return cmd
}

func newFilterCmd(g *globalFlags) *cobra.Command {
	var (
		format  string
		filters filterFlags
	)
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "List recipes matching facet filters",
		Example: `  mise filter --country Italy --difficulty easy
  mise filter --ingredient garlic,butter --exclude nuts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := cli.ParseFormat(format)
			if err != nil {
				return err
			}
			c, err := setup(g, false)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.warmup(cmd.Context()); err != nil {
				return err
			}
			recipes, err := c.engine.Filter(filters.criteria(cmd))
			if err != nil {
				return err
			}
			return cli.WriteRecipes(cmd.OutOrStdout(), recipes, outFormat)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or compact")
	filters.register(cmd)
	return cmd
}

// getJSON issues a GET request and decodes a JSON response body into v.
func getJSON(ctx context.Context, target string, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		b, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
