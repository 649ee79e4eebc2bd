// Package duckdb provides a persistent catalog of saved gene set dbs.
// Each saved db is stored relationally (membership, gene set table,
// collection metadata, universe and feature map) so it can be reloaded
// exactly and queried across dbs, e.g. which gene sets contain a feature.
package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
)

// ErrNotFound is returned for a db id that is not in the catalog.
var ErrNotFound = errors.New("gene set db not found in catalog")

// Store manages a DuckDB connection holding the catalog.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
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

// SetLogger sets the logger for catalog operations.
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

// Path returns the database path, "" for in-memory.
func (s *Store) Path() string {
	return s.path
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS genesetdbs (
		id VARCHAR PRIMARY KEY,
		label VARCHAR,
		created_at TIMESTAMP,
		conformed BOOLEAN,
		min_size BIGINT,
		max_size BIGINT,
		has_feature_map BOOLEAN,
		annotation_columns VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS membership (
		db_id VARCHAR,
		seq BIGINT,
		collection VARCHAR,
		name VARCHAR,
		feature_id VARCHAR,
		extra VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS genesets (
		db_id VARCHAR,
		seq BIGINT,
		collection VARCHAR,
		name VARCHAR,
		active BOOLEAN,
		n BIGINT,
		n_conformed BIGINT,
		deactivated BOOLEAN,
		annotations VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS collection_metadata (
		db_id VARCHAR,
		seq BIGINT,
		collection VARCHAR,
		variable VARCHAR,
		kind VARCHAR,
		value VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS universe (
		db_id VARCHAR,
		pos BIGINT,
		feature_id VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS feature_map (
		db_id VARCHAR,
		from_id VARCHAR,
		to_id VARCHAR
	)`,
}

// dataTables hold per-db rows keyed by db_id.
var dataTables = []string{"membership", "genesets", "collection_metadata", "universe", "feature_map"}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
