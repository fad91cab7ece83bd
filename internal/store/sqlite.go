package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/mise/internal/models"
)

// SQLiteCatalog persists a recipe collection to a SQLite database file.
// It is the document half of an on-disk index snapshot.
type SQLiteCatalog struct {
	db *sql.DB
}

// OpenSQLiteCatalog opens or creates a SQLite catalog at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func OpenSQLiteCatalog(dbPath string) (*SQLiteCatalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCatalog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS recipes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		country TEXT,
		category TEXT,
		difficulty TEXT,
		meal_type TEXT,
		cooking_method TEXT,
		total_minutes INTEGER,
		body TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_recipes_country ON recipes(country);
	CREATE INDEX IF NOT EXISTS idx_recipes_category ON recipes(category);

	CREATE TABLE IF NOT EXISTS catalog_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceAll deletes every stored recipe and inserts recipes in one transaction.
func (c *SQLiteCatalog) ReplaceAll(ctx context.Context, recipes []*models.Recipe) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recipes`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO recipes (id, title, country, category, difficulty, meal_type, cooking_method, total_minutes, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recipes {
		body, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal recipe %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Title, r.Country, r.Category, r.Difficulty, r.MealType, r.CookingMethod,
			r.Duration.Total, string(body),
		); err != nil {
			return fmt.Errorf("failed to insert recipe %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Get returns a stored recipe by id.
func (c *SQLiteCatalog) Get(ctx context.Context, id string) (*models.Recipe, error) {
	var body string
	err := c.db.QueryRowContext(ctx, `SELECT body FROM recipes WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("recipe %q: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var r models.Recipe
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe %s: %w", id, err)
	}
	return &r, nil
}

// All returns every stored recipe ordered by id.
func (c *SQLiteCatalog) All(ctx context.Context) ([]*models.Recipe, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, body FROM recipes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipes []*models.Recipe
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		var r models.Recipe
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipe %s: %w", id, err)
		}
		recipes = append(recipes, &r)
	}
	return recipes, rows.Err()
}

// Count returns the number of stored recipes.
func (c *SQLiteCatalog) Count(ctx context.Context) (int64, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&count)
	return count, err
}

// SetMeta stores a catalog metadata value.
func (c *SQLiteCatalog) SetMeta(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO catalog_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Meta returns a catalog metadata value, or "" if unset.
func (c *SQLiteCatalog) Meta(ctx context.Context, key string) (string, error) {
	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM catalog_meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}
