package idalloc

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const counterName = "notes"

// SQLite keeps the next id in a single counter row.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the counter database at path.
func NewSQLite(path string, floor int64) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(floor); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate(floor int64) error {
	schema := `
	CREATE TABLE IF NOT EXISTS id_counters (
		name    TEXT PRIMARY KEY,
		next_id INTEGER NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	_, err := s.db.Exec(`
		INSERT INTO id_counters (name, next_id) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET next_id = MAX(id_counters.next_id, excluded.next_id)`,
		counterName, floor)
	return err
}

func (s *SQLite) Next(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE id_counters SET next_id = next_id + 1 WHERE name = ? RETURNING next_id - 1`,
		counterName,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	return id, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
