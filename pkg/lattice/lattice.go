// Package lattice provides an embedded, append-only analytical store for
// multidimensional integer data. Keys are tuples of unsigned integers (the
// dimensions), payloads are unsigned integers (the values); rows ingest in
// any order and scan back in dimension order, with later writes overriding
// earlier ones at the same coordinate.
//
// Data is partitioned into dense in-memory blocks by chunking each
// dimension, staged to compressed segment files on flush, and made visible
// at commit by renaming those files. Queries merge committed data, staged
// segments, and unflushed writes under snapshot isolation: a transaction
// sees exactly the state committed before it began, plus its own writes.
package lattice

import (
	"context"

	"go.uber.org/zap"

	"github.com/iamNilotpal/lattice/internal/db"
	"github.com/iamNilotpal/lattice/internal/scan"
	"github.com/iamNilotpal/lattice/pkg/logger"
	"github.com/iamNilotpal/lattice/pkg/options"
	"github.com/iamNilotpal/lattice/pkg/schema"
)

// Re-exported model types, so embedding applications only import this
// package for ordinary use.
type (
	// Datum is the scalar type of all dimensions and values.
	Datum = schema.Datum
	// Schema describes a store's dimensions and value columns.
	Schema = schema.Schema
	// Dimension is one coordinate axis with its chunk size.
	Dimension = schema.Dimension
	// Value is one named value column.
	Value = schema.Value
	// Transaction buffers, stages and commits writes, and runs queries.
	Transaction = db.Transaction
	// Scan iterates the merged rows of a query.
	Scan = scan.Scan
	// QueryRow is one merged result row.
	QueryRow = scan.QueryRow
)

// Store is an open database instance. It is the entry point for starting
// transactions, and must be closed when no longer needed.
type Store struct {
	db      *db.Database
	options *options.Options
	log     *zap.SugaredLogger
}

// Create makes a new database at path with the given schema and returns an
// open handle on it. The path must not already exist.
func Create(ctx context.Context, path string, s *Schema, opts ...options.OptionFunc) (*Store, error) {
	log := logger.New("lattice")
	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	database, err := db.Create(ctx, &db.Config{
		Path:    path,
		Schema:  s,
		Options: &defaultOpts,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	return &Store{db: database, options: &defaultOpts, log: log}, nil
}

// Open opens the existing database at path, recovering from any interrupted
// transaction by discarding its temporary segment files.
func Open(ctx context.Context, path string, opts ...options.OptionFunc) (*Store, error) {
	log := logger.New("lattice")
	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	database, err := db.Open(ctx, &db.Config{
		Path:    path,
		Options: &defaultOpts,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	return &Store{db: database, options: &defaultOpts, log: log}, nil
}

// Schema returns the store's schema.
func (s *Store) Schema() *Schema {
	return s.db.Schema()
}

// NewTransaction starts a transaction. Read transactions may overlap; at
// most one transaction may write at a time. This is not enforced.
func (s *Store) NewTransaction() (*Transaction, error) {
	return s.db.NewTransaction()
}

// Close releases the store's directory lock and invalidates the handle.
func (s *Store) Close() error {
	err := s.db.Close()
	_ = s.log.Sync()
	return err
}
