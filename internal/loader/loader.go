// Package loader reads recipe documents from JSON files on disk.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/mise/internal/models"
)

// Extension is the file extension of recipe documents.
const Extension = ".json"

// LoadError reports a recipe file that was skipped.
type LoadError struct {
	File string
	Err  error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e LoadError) Unwrap() error {
	return e.Err
}

// IsRecipeFile reports whether path names a recipe document.
func IsRecipeFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}

// LoadDir reads every *.json file directly inside dir in name order. Each file holds one
// recipe; a missing id is taken from the file stem. Files that cannot be decoded or fail
// validation are skipped and reported. The error is non-nil only when dir cannot be read.
func LoadDir(dir string) ([]*models.Recipe, []LoadError, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read recipe dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && IsRecipeFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	recipes := make([]*models.Recipe, 0, len(names))
	var skipped []LoadError
	for _, name := range names {
		path := filepath.Join(dir, name)
		r, err := LoadFile(path)
		if err != nil {
			skipped = append(skipped, LoadError{File: path, Err: err})
			continue
		}
		recipes = append(recipes, r)
	}
	return recipes, skipped, nil
}

// LoadFile decodes, normalizes and validates a single recipe file.
func LoadFile(path string) (*models.Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r models.Recipe
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if strings.TrimSpace(r.ID) == "" {
		r.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	r.SourceFile = filepath.Base(path)
	r.Normalize()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadDirs loads every directory in order. Missing directories are logged and skipped;
// a recipe id seen in an earlier file wins and later duplicates are reported.
func LoadDirs(dirs []string, logger *zap.Logger) ([]*models.Recipe, []LoadError, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		all     []*models.Recipe
		skipped []LoadError
		seen    = make(map[string]string)
	)
	for _, dir := range dirs {
		recipes, errs, err := LoadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.Warn("Recipe directory does not exist", zap.String("dir", dir))
				continue
			}
			return nil, nil, err
		}
		skipped = append(skipped, errs...)
		for _, r := range recipes {
			if first, dup := seen[r.ID]; dup {
				skipped = append(skipped, LoadError{
					File: filepath.Join(dir, r.SourceFile),
					Err:  fmt.Errorf("%w: duplicate recipe id %q, first defined in %s", models.ErrInvalidInput, r.ID, first),
				})
				continue
			}
			seen[r.ID] = filepath.Join(dir, r.SourceFile)
			all = append(all, r)
		}
		logger.Info("Recipes loaded",
			zap.String("dir", dir),
			zap.Int("recipes", len(recipes)),
			zap.Int("skipped", len(errs)))
	}
	for _, e := range skipped {
		logger.Warn("Skipped recipe file", zap.String("file", e.File), zap.Error(e.Err))
	}
	if all == nil {
		all = []*models.Recipe{}
	}
	return all, skipped, nil
}
