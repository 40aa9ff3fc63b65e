package persist

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const snapshotKey = "state"

// SQLite is a Medium backed by a single-row key-value table, for clients
// that prefer a database file over a raw snapshot file.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (and if needed creates) the snapshot database at path.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("persist: open sqlite: %w", err)
	}
	if _, err := conn.Exec(snapshotSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("persist: create schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.conn.Close() }

// Load reads the stored snapshot row.
func (s *SQLite) Load() ([]byte, bool, error) {
	var data []byte
	err := s.conn.QueryRow(`SELECT value FROM snapshots WHERE key = ?`, snapshotKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("persist: load snapshot: %w", err)
	}
	return data, true, nil
}

// Save upserts the snapshot row.
func (s *SQLite) Save(data []byte) error {
	_, err := s.conn.Exec(`
		INSERT INTO snapshots (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		snapshotKey, data)
	if err != nil {
		return fmt.Errorf("persist: save snapshot: %w", err)
	}
	return nil
}
