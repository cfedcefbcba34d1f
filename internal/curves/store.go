// Package curves stores gene-level and per-insertion depletion curves in
// DuckDB and serves per-gene points, per-set profiles and insertion curves.
package curves

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
)

// Store manages a DuckDB connection holding depletion-curve data.
// Loads hold mu exclusively so queries never see a half-replaced table.
type Store struct {
	db     *sql.DB
	path   string
	mu     sync.RWMutex
	logger *zap.Logger
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create curve store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path, logger: zap.NewNop()}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// SetLogger sets the logger for load diagnostics.
func (s *Store) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS timepoints (
			timepoint VARCHAR PRIMARY KEY,
			ord BIGINT,
			generations DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS gene_lfc (
			gene VARCHAR,
			timepoint VARCHAR,
			lfc DOUBLE,
			pvalue DOUBLE,
			PRIMARY KEY (gene, timepoint)
		)`,
		`CREATE TABLE IF NOT EXISTS insertions (
			chr VARCHAR,
			coordinate BIGINT,
			strand VARCHAR,
			target VARCHAR,
			gene VARCHAR,
			type VARCHAR,
			distance_to_start DOUBLE,
			distance_to_stop DOUBLE,
			fraction_to_start DOUBLE,
			fraction_to_stop DOUBLE,
			residue_affected VARCHAR,
			residue_frame VARCHAR,
			insertion_direction VARCHAR,
			PRIMARY KEY (chr, coordinate, strand, target)
		)`,
		`CREATE TABLE IF NOT EXISTS insertion_lfc (
			chr VARCHAR,
			coordinate BIGINT,
			strand VARCHAR,
			target VARCHAR,
			timepoint VARCHAR,
			lfc DOUBLE,
			padj DOUBLE,
			PRIMARY KEY (chr, coordinate, strand, target, timepoint)
		)`,
		`CREATE TABLE IF NOT EXISTS sources (
			role VARCHAR PRIMARY KEY,
			path VARCHAR,
			size BIGINT,
			mod_time VARCHAR,
			hash VARCHAR
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
