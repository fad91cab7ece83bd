package search

import (
	"strings"

	"github.com/hyperjump/mise/internal/models"
)

// ProcessQuery trims the query text and validates it together with the optional criteria.
func ProcessQuery(query string, criteria *models.FilterCriteria) (string, error) {
	query = strings.TrimSpace(query)
	if err := models.ValidateQueryText(query); err != nil {
		return "", err
	}
	if err := criteria.Validate(); err != nil {
		return "", err
	}
	return query, nil
}
