// Package store keeps the demo service's records in SQLite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/respond/logging"

	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed schema.sql
var schemaFS embed.FS

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrInvalidRecord  = errors.New("invalid record")
)

// Record is a single row served by the demo API.
type Record struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Val       int    `json:"val"`
	CreatedAt int64  `json:"created_at"`
}

// Store manages records in a SQLite database.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (or creates) the SQLite database at path and runs migrations.
// ":memory:" yields a private in-memory database.
func Open(path string, logger logging.Logger) (*Store, error) {
	dsn := path
	if path == ":memory:" {
		dsn = "file::memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure storage dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening records database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writes.
	db.SetMaxOpenConns(1)

	s, err := New(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New returns a Store over db and runs migrations from schema.sql.
func New(db *sql.DB, logger logging.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRecord inserts a new record and returns it.
func (s *Store) CreateRecord(ctx context.Context, name string, val int) (*Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}

	rec := &Record{
		ID:        uuid.New().String(),
		Name:      name,
		Val:       val,
		CreatedAt: time.Now().UnixNano(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, name, val, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Val, rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	s.logger.Debug("created record", logging.F("id", rec.ID))
	return rec, nil
}

// GetRecord returns a record by id.
func (s *Store) GetRecord(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, val, created_at FROM records WHERE id = ? LIMIT 1`, id)

	var r Record
	if err := row.Scan(&r.ID, &r.Name, &r.Val, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &r, nil
}

// ListRecords returns records oldest first. limit <= 0 means no limit.
func (s *Store) ListRecords(ctx context.Context, limit int) ([]Record, error) {
	q := `SELECT id, name, val, created_at FROM records ORDER BY created_at ASC, rowid ASC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Name, &r.Val, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
