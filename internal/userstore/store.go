// Package userstore persists each user's folder forest server-side in a
// single relational row, keyed by user ID.
package userstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/laguz/internal/tree"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS forests (
	user_id    TEXT PRIMARY KEY,
	folders    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store reads and writes user forests through database/sql, speaking either
// SQLite (default, single-file deployment) or Postgres.
type Store struct {
	conn   *sql.DB
	driver string
}

// Open connects with the given driver and DSN and ensures the schema.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("userstore: unsupported driver %q", driver)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("userstore: open: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("userstore: create schema: %w", err)
	}
	return &Store{conn: conn, driver: driver}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.conn.Close() }

// Load returns the user's forest, or an empty forest when the user has no
// row yet.
func (s *Store) Load(ctx context.Context, userID string) ([]*tree.Item, error) {
	var payload string
	err := s.conn.QueryRowContext(ctx,
		s.rebind(`SELECT folders FROM forests WHERE user_id = ?`), userID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return []*tree.Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("userstore: load %s: %w", userID, err)
	}
	var items []*tree.Item
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("userstore: decode forest for %s: %w", userID, err)
	}
	if items == nil {
		items = []*tree.Item{}
	}
	return items, nil
}

// Save upserts the user's forest.
func (s *Store) Save(ctx context.Context, userID string, items []*tree.Item) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("userstore: encode forest: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, s.rebind(`
		INSERT INTO forests (user_id, folders, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET folders = excluded.folders, updated_at = CURRENT_TIMESTAMP`),
		userID, string(payload))
	if err != nil {
		return fmt.Errorf("userstore: save %s: %w", userID, err)
	}
	return nil
}

// rebind rewrites ? placeholders to $N for the Postgres driver.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
