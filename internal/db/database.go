// Package db implements the top-level database object and its transactions.
//
// A Database owns a directory: the schema sidecar, the committed segment
// files, a lock file claiming the directory for one process, and — between a
// flush and a commit — the temporary segment files of the active
// transaction. Opening a database reconstructs its state purely from the
// directory listing: committed segments register by filename, temporary
// files are leftovers of an interrupted transaction and are purged, and the
// next transaction id resumes above every id ever seen.
//
// Visibility follows a simple MVCC rule. Every transaction is created with a
// horizon, the database's next transaction id at that moment; it sees
// exactly the committed segments with ids below its horizon plus its own
// writes. Commit makes staged segments visible by renaming them in reverse
// order, so the transaction's first segment appears last. The next open
// deletes the temporary files an interrupted commit leaves behind; segments
// it had already renamed stay visible.
package db

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/btree"
	"go.uber.org/zap"

	"github.com/iamNilotpal/lattice/internal/block"
	"github.com/iamNilotpal/lattice/internal/segment"
	"github.com/iamNilotpal/lattice/pkg/cache"
	"github.com/iamNilotpal/lattice/pkg/errors"
	"github.com/iamNilotpal/lattice/pkg/filesys"
	"github.com/iamNilotpal/lattice/pkg/options"
	"github.com/iamNilotpal/lattice/pkg/schema"
)

// LockFilename is the name of the advisory lock file inside the database
// directory. The name contains no dot-separated hex parts, so the directory
// scanner never mistakes it for a segment.
const LockFilename = "LOCK"

// committedDegree is the branching factor of the committed-segment registry.
const committedDegree = 16

// Database is a handle on one database directory. It owns the schema, the
// registry of committed segments, the segment and block caches, and the
// transaction id counter. A handle and its transactions are confined to a
// single goroutine — there is no shared mutable state to protect — so the
// handle needs no internal locking.
type Database struct {
	path    string
	schema  *schema.Schema
	options *options.Options
	log     *zap.SugaredLogger

	nextTxnID segment.TxnID
	committed *btree.BTreeG[segment.ID]

	segments *cache.Cache[segment.ID, *segment.Segment]
	blocks   *cache.Cache[segment.BlockID, *block.Block]

	dirLock *flock.Flock
	closed  atomic.Bool
}

// Config carries everything needed to create or open a database.
type Config struct {
	Path    string
	Schema  *schema.Schema // Required for Create, ignored by Open.
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// Create makes a new database directory, persists the schema sidecar into
// it, and returns a handle with the transaction counter at one.
func Create(ctx context.Context, config *Config) (*Database, error) {
	if config == nil || config.Options == nil || config.Logger == nil || config.Schema == nil {
		return nil, errors.NewRequiredFieldError("config")
	}
	if err := config.Schema.Validate(); err != nil {
		return nil, err
	}

	exists, err := filesys.Exists(config.Path)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to check database path").
			WithPath(config.Path)
	}
	if exists {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "Database path already exists",
		).WithField("path").WithRule("unique").WithProvided(config.Path)
	}

	if err := filesys.CreateDir(config.Path, config.Options.DirPermission, true); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, config.Path)
	}

	if err := config.Schema.Save(config.Path, config.Options.FilePermission); err != nil {
		return nil, err
	}

	db := newDatabase(config, config.Schema)
	db.nextTxnID = 1

	if err := db.acquireLock(); err != nil {
		return nil, err
	}

	config.Logger.Infow("Created database",
		"path", config.Path,
		"dimensions", config.Schema.NumDimensions(),
		"values", config.Schema.NumValues(),
	)

	return db, nil
}

// Open loads an existing database: reads the schema, locks the directory,
// then scans it. Committed segments register by filename; temporary files
// are remnants of a transaction that never committed and are deleted here,
// which is the entire crash-recovery story. Committed segments are not
// checked: those an interrupted commit had already renamed stay registered.
func Open(ctx context.Context, config *Config) (*Database, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, errors.NewRequiredFieldError("config")
	}

	loadedSchema, err := schema.Load(config.Path)
	if err != nil {
		return nil, err
	}

	db := newDatabase(config, loadedSchema)

	if err := db.acquireLock(); err != nil {
		return nil, err
	}

	names, err := filesys.ReadDirNames(config.Path)
	if err != nil {
		db.releaseLock()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to list database directory").
			WithPath(config.Path)
	}

	var maxSeenTxnID segment.TxnID
	for _, name := range names {
		id, visible, ok := segment.DecodeName(name)
		if !ok {
			continue
		}

		if id.Txn > maxSeenTxnID {
			maxSeenTxnID = id.Txn
		}

		if !visible {
			// An uncommitted segment from an interrupted transaction.
			path := segment.Path(config.Path, id, false)
			if err := filesys.DeleteFile(path); err != nil {
				db.releaseLock()
				return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to purge uncommitted segment").
					WithSegment(id.String()).WithPath(path)
			}
			config.Logger.Warnw("Purged uncommitted segment", "segment", id, "path", path)
			continue
		}

		db.committed.ReplaceOrInsert(id)
	}

	db.nextTxnID = maxSeenTxnID + 1

	config.Logger.Infow("Opened database",
		"path", config.Path,
		"committedSegments", db.committed.Len(),
		"nextTransactionId", db.nextTxnID,
	)

	return db, nil
}

// newDatabase assembles a handle around validated configuration.
func newDatabase(config *Config, dbSchema *schema.Schema) *Database {
	return &Database{
		path:      config.Path,
		schema:    dbSchema,
		options:   config.Options,
		log:       config.Logger,
		committed: btree.NewG(committedDegree, segment.ID.Less),
		segments:  cache.New[segment.ID, *segment.Segment](config.Options.SegmentCacheEntries),
		blocks:    cache.New[segment.BlockID, *block.Block](config.Options.BlockCacheEntries),
	}
}

// Schema returns the database's schema.
func (db *Database) Schema() *schema.Schema {
	return db.schema
}

// Path returns the database directory.
func (db *Database) Path() string {
	return db.path
}

// NewTransaction starts a transaction whose horizon is the database's
// current next transaction id: it sees every segment committed before this
// call and nothing committed after. Read transactions may overlap; at most
// one transaction may write at a time, and all use of a database handle is
// confined to a single goroutine.
func (db *Database) NewTransaction() (*Transaction, error) {
	if db.closed.Load() {
		return nil, ErrDatabaseClosed
	}

	return &Transaction{
		db:      db,
		log:     db.log,
		horizon: db.nextTxnID,
		unsaved: make(map[schema.ChunkKey]*block.Block),
	}, nil
}

// Close releases the directory lock and marks the handle unusable.
// Transactions still open against the handle behave as rolled back: their
// staged files are purged at the next Open.
func (db *Database) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return ErrDatabaseClosed
	}

	db.releaseLock()
	db.log.Infow("Closed database", "path", db.path)
	return nil
}

// allocateTxnID hands out the next transaction id. Ids are monotone and
// never reused within this handle's lifetime.
func (db *Database) allocateTxnID() segment.TxnID {
	id := db.nextTxnID
	db.nextTxnID++
	return id
}

// addCommittedSegment registers a newly visible segment.
func (db *Database) addCommittedSegment(id segment.ID) {
	db.committed.ReplaceOrInsert(id)
}

// visibleCommittedSegments returns, in id order, every committed segment a
// transaction with the given horizon may read.
func (db *Database) visibleCommittedSegments(horizon segment.TxnID) []segment.ID {
	var ids []segment.ID
	db.committed.Ascend(func(id segment.ID) bool {
		if id.Txn >= horizon {
			return false
		}
		ids = append(ids, id)
		return true
	})
	return ids
}

// acquireLock claims the database directory for this process. A second
// opener fails fast instead of corrupting shared state.
func (db *Database) acquireLock() error {
	lock := flock.New(segmentLockPath(db.path))
	locked, err := lock.TryLock()
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to acquire database lock").
			WithPath(lock.Path())
	}
	if !locked {
		return errors.NewStorageError(nil, errors.ErrorCodeDatabaseLocked, "Database is locked by another process").
			WithPath(lock.Path())
	}
	db.dirLock = lock
	return nil
}

// releaseLock lets go of the directory lock, if held.
func (db *Database) releaseLock() {
	if db.dirLock == nil {
		return
	}
	if err := db.dirLock.Unlock(); err != nil {
		db.log.Warnw("Failed to release database lock", "path", db.dirLock.Path(), "error", err)
	}
	db.dirLock = nil
}

// segmentLockPath returns the lock file path for a database directory.
func segmentLockPath(databasePath string) string {
	return filepath.Join(databasePath, LockFilename)
}
