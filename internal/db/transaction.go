package db

import (
	stdErrors "errors"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/iamNilotpal/lattice/internal/block"
	"github.com/iamNilotpal/lattice/internal/scan"
	"github.com/iamNilotpal/lattice/internal/segment"
	"github.com/iamNilotpal/lattice/pkg/errors"
	"github.com/iamNilotpal/lattice/pkg/schema"
)

var (
	// ErrDatabaseClosed is returned when operating on a closed database.
	ErrDatabaseClosed = stdErrors.New("operation failed: cannot access closed database")

	// ErrTransactionFinished is returned when operating on a transaction
	// that has already committed or rolled back.
	ErrTransactionFinished = stdErrors.New("operation failed: transaction already finished")
)

// Transaction buffers writes and stages them to disk. Rows accumulate in
// per-chunk blocks in memory; Flush packs the buffered blocks into a new
// temporary segment file; Commit renames every staged segment to its
// visible name, newest first, so the first segment is the last to become
// visible.
//
// A transaction that is neither committed nor rolled back leaves temporary
// files behind; they are purged at the next Open. Rollback removes them
// eagerly.
type Transaction struct {
	db  *Database
	log *zap.SugaredLogger

	id      segment.TxnID // 0 until the first flush allocates one.
	horizon segment.TxnID

	unsaved     map[schema.ChunkKey]*block.Block
	uncommitted []*segment.Segment
	done        bool
}

// ID returns the transaction's id, or 0 if it has not flushed yet.
func (t *Transaction) ID() segment.TxnID {
	return t.id
}

// Horizon returns the transaction's visibility horizon: committed segments
// with transaction ids at or above it are invisible to this transaction.
func (t *Transaction) Horizon() segment.TxnID {
	return t.horizon
}

// AddRow buffers one row. The row must hold one datum per dimension
// followed by one per value column. The write is immediately visible to
// this transaction's own queries; rewriting a coordinate replaces its
// value.
func (t *Transaction) AddRow(values []schema.Datum) error {
	if t.done {
		return ErrTransactionFinished
	}
	if len(values) != t.db.schema.RowWidth() {
		return errors.NewRowWidthError(len(values), t.db.schema.RowWidth())
	}

	key := t.db.schema.ChunkKeyFor(values)
	blk, ok := t.unsaved[key]
	if !ok {
		blk = block.New(t.db.schema.NumDimensions())
		t.unsaved[key] = blk
	}

	blk.AddRow(values)
	return nil
}

// Flush writes all buffered blocks into a new temporary segment file and
// clears the buffer. A transaction id is allocated on the first flush. With
// nothing buffered, Flush is a no-op.
func (t *Transaction) Flush() error {
	if t.done {
		return ErrTransactionFinished
	}
	if len(t.unsaved) == 0 {
		return nil
	}

	txnID := t.ensureID()
	segID := segment.ID{Txn: txnID, Num: segment.Num(len(t.uncommitted))}

	// Drain the buffer in chunk-key order so a given set of writes always
	// produces the same file.
	keys := make([]string, 0, len(t.unsaved))
	for key := range t.unsaved {
		keys = append(keys, string(key))
	}
	sort.Strings(keys)

	blocks := make([]*block.Block, 0, len(keys))
	for _, key := range keys {
		blocks = append(blocks, t.unsaved[schema.ChunkKey(key)])
	}

	seg, err := segment.Create(t.log, t.db.path, segID, blocks, t.db.options)
	if err != nil {
		return err
	}

	t.uncommitted = append(t.uncommitted, seg)
	t.unsaved = make(map[schema.ChunkKey]*block.Block)

	t.log.Debugw("Flushed segment",
		"segment", segID,
		"blocks", seg.NumBlocks(),
	)
	return nil
}

// Query returns a scan over everything this transaction can see: committed
// segments below its horizon, its own staged segments, and its unsaved
// blocks. Buffered writes appear without flushing. The scan must be closed.
func (t *Transaction) Query() (*scan.Scan, error) {
	if t.done {
		return nil, ErrTransactionFinished
	}

	sc := scan.New(t.log, &scanSource{db: t.db, txn: t}, t.db.schema.NumDimensions())

	for _, id := range t.db.visibleCommittedSegments(t.horizon) {
		t.log.Debugw("Scan includes committed segment", "segment", id)
		sc.AddCommittedSegment(id)
	}
	for _, seg := range t.uncommitted {
		t.log.Debugw("Scan includes uncommitted segment", "segment", seg.ID)
		sc.AddOwnSegment(seg, t.id)
	}
	for _, blk := range t.unsaved {
		sc.AddOwnBlock(blk, t.id)
	}

	return sc, nil
}

// Commit flushes any remaining buffered rows, then makes every staged
// segment visible, in reverse order of creation. Segment 0 is renamed last:
// an interruption anywhere before that leaves the transaction's first
// segment temporary, and the next Open deletes it. Segments renamed before
// the interruption stay visible.
func (t *Transaction) Commit() error {
	if t.done {
		return ErrTransactionFinished
	}

	if err := t.Flush(); err != nil {
		return err
	}

	for i := len(t.uncommitted) - 1; i >= 0; i-- {
		seg := t.uncommitted[i]
		if err := seg.MakeVisible(t.db.path); err != nil {
			return err
		}
		t.db.addCommittedSegment(seg.ID)
	}

	t.uncommitted = nil
	t.finish()

	t.log.Infow("Committed transaction", "txn", t.id)
	return nil
}

// Rollback discards all buffered rows and deletes every staged segment
// file. Rolling back a finished transaction is a no-op.
func (t *Transaction) Rollback() error {
	if t.done {
		return nil
	}

	clear(t.unsaved)

	var errs error
	for _, seg := range t.uncommitted {
		if err := seg.Delete(); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		t.log.Debugw("Deleted cancelled segment", "segment", seg.ID, "path", seg.Path)
	}

	t.uncommitted = nil
	t.finish()
	return errs
}

// ensureID returns the transaction's id, allocating one from the database
// on first use.
func (t *Transaction) ensureID() segment.TxnID {
	if t.id == 0 {
		t.id = t.db.allocateTxnID()
	}
	return t.id
}

// finish marks the transaction done; every operation after this fails with
// ErrTransactionFinished.
func (t *Transaction) finish() {
	t.done = true
}
