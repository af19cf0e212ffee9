package tagcache

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// Store persists the managed-tag cache in a sqlite table keyed by the
// primary catalog's product id. Tags are stored comma-joined in canonical
// form. Each upsert replaces the whole row; there is no batching and no
// accounting for concurrent external writers.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the cache database at the given path.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open tag cache: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tag cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetAll returns every cached entry. An empty tag list is a valid entry: it
// means the product was seen before and carried no managed tags.
func (s *Store) GetAll(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT product_id, tags FROM tag_cache")
	if err != nil {
		return nil, fmt.Errorf("load tag cache: %w", err)
	}
	defer rows.Close()

	entries := make(map[string][]string)
	for rows.Next() {
		var productID, joined string
		if err := rows.Scan(&productID, &joined); err != nil {
			return nil, fmt.Errorf("scan tag cache row: %w", err)
		}
		entries[productID] = splitTags(joined)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag cache: %w", err)
	}

	return entries, nil
}

// Upsert writes one product's managed tags, replacing any existing entry.
func (s *Store) Upsert(ctx context.Context, productID string, tags []string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tag_cache (product_id, tags, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(product_id) DO UPDATE SET tags = excluded.tags, updated_at = excluded.updated_at`,
		productID, strings.Join(tags, ","), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upsert tag cache entry %s: %w", productID, err)
	}
	return nil
}

func splitTags(joined string) []string {
	if joined == "" {
		return []string{}
	}
	parts := strings.Split(joined, ",")
	tags := make([]string, 0, len(parts))
	for _, t := range parts {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
