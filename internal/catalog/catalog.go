// Package catalog provides read access to the HydroData point observations
// metadata catalog, a SQLite database describing variables, sites, per-site
// observation summaries and discrete water table depth records.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

var (
	// ErrUnsupported is returned when no variable matches a request.
	ErrUnsupported = errors.New("the provided combination of data_source, variable, temporal_resolution, and aggregation is not currently supported")
	// ErrNotFound is returned when the catalog file does not exist.
	ErrNotFound = errors.New("catalog not found")
)

// DB wraps a SQLite connection to the catalog.
type DB struct {
	db *sql.DB
}

// Open opens an existing catalog.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat catalog: %w", err)
	}
	return open(path)
}

// Create opens the catalog at path, creating the file and its schema if
// needed. It is meant for building catalogs, not for querying a shared one.
func Create(path string) (*DB, error) {
	d, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := d.CreateSchema(); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return d, nil
}

func open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Exec runs a statement against the catalog. It exists for loading data
// into catalogs built with Create.
func (d *DB) Exec(query string, args ...any) error {
	_, err := d.db.Exec(query, args...)
	return err
}

// placeholders returns "?,?,...,?" with n marks.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(vals []string) []any {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return args
}
