package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iamNilotpal/lattice/internal/block"
	"github.com/iamNilotpal/lattice/internal/segment"
	"github.com/iamNilotpal/lattice/pkg/options"
	"github.com/iamNilotpal/lattice/pkg/schema"
)

// diskSource resolves segment and block ids straight from segment files in
// a test directory, with no caching.
type diskSource struct {
	dir string
	log *zap.SugaredLogger
}

func (src *diskSource) Segment(id segment.ID) (*segment.Segment, error) {
	return segment.Load(src.log, src.dir, id)
}

func (src *diskSource) Block(id segment.BlockID) (*block.Block, error) {
	seg, err := segment.Load(src.log, src.dir, id.Segment)
	if err != nil {
		return nil, err
	}
	return seg.LoadOneBlock(id.Block)
}

func (src *diskSource) Close() error { return nil }

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func newTestScan(t *testing.T) (*Scan, string) {
	t.Helper()
	dir := t.TempDir()
	return New(testLogger(), &diskSource{dir: dir, log: testLogger()}, 2), dir
}

func makeBlock(rows ...[]schema.Datum) *block.Block {
	b := block.New(2)
	for _, row := range rows {
		b.AddRow(row)
	}
	return b
}

func writeSegment(t *testing.T, dir string, id segment.ID, blocks ...*block.Block) *segment.Segment {
	t.Helper()
	opts := options.NewDefaultOptions()
	opts.SyncOnFlush = false
	seg, err := segment.Create(testLogger(), dir, id, blocks, &opts)
	require.NoError(t, err)
	return seg
}

func collect(t *testing.T, s *Scan) []QueryRow {
	t.Helper()
	var rows []QueryRow
	for s.Next() {
		rows = append(rows, s.Row())
	}
	require.NoError(t, s.Err())
	return rows
}

func TestEmptyScan(t *testing.T) {
	s, _ := newTestScan(t)
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}

func TestOneEmptyBlock(t *testing.T) {
	s, _ := newTestScan(t)
	s.AddOwnBlock(block.New(2), 5)

	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}

func TestOneBlock(t *testing.T) {
	s, _ := newTestScan(t)
	s.AddOwnBlock(makeBlock(
		[]schema.Datum{7, 4, 99},
		[]schema.Datum{9, 0, 101},
	), 5)

	rows := collect(t, s)
	require.Len(t, rows, 2)
	assert.Equal(t, []schema.Datum{7, 4, 99}, rows[0].Values)
	assert.Equal(t, segment.TxnID(5), rows[0].TxnID)
	assert.Equal(t, []schema.Datum{9, 0, 101}, rows[1].Values)
}

func TestTwoDisjointBlocks(t *testing.T) {
	s, _ := newTestScan(t)
	s.AddOwnBlock(makeBlock([]schema.Datum{9, 0, 101}), 5)
	s.AddOwnBlock(makeBlock([]schema.Datum{7, 4, 99}), 5)

	rows := collect(t, s)
	require.Len(t, rows, 2)
	assert.Equal(t, []schema.Datum{7, 4, 99}, rows[0].Values)
	assert.Equal(t, []schema.Datum{9, 0, 101}, rows[1].Values)
}

func TestInterleavedBlocks(t *testing.T) {
	s, _ := newTestScan(t)
	s.AddOwnBlock(makeBlock(
		[]schema.Datum{1, 0, 10},
		[]schema.Datum{3, 0, 30},
		[]schema.Datum{5, 0, 50},
	), 5)
	s.AddOwnBlock(makeBlock(
		[]schema.Datum{2, 0, 20},
		[]schema.Datum{4, 0, 40},
	), 5)

	rows := collect(t, s)
	require.Len(t, rows, 5)
	for i, want := range []schema.Datum{10, 20, 30, 40, 50} {
		assert.Equal(t, want, rows[i].Values[2])
	}
}

func TestCommittedSegmentsNewestWins(t *testing.T) {
	s, dir := newTestScan(t)

	writeSegment(t, dir, segment.ID{Txn: 1, Num: 0}, makeBlock([]schema.Datum{1, 1, 10}))
	writeSegment(t, dir, segment.ID{Txn: 2, Num: 0}, makeBlock([]schema.Datum{1, 1, 20}))

	s.AddCommittedSegment(segment.ID{Txn: 1, Num: 0})
	s.AddCommittedSegment(segment.ID{Txn: 2, Num: 0})

	rows := collect(t, s)
	require.Len(t, rows, 1)
	assert.Equal(t, []schema.Datum{1, 1, 20}, rows[0].Values)
	assert.Equal(t, segment.TxnID(2), rows[0].TxnID)
}

func TestLaterSegmentOfSameTransactionWins(t *testing.T) {
	s, dir := newTestScan(t)

	writeSegment(t, dir, segment.ID{Txn: 1, Num: 0}, makeBlock([]schema.Datum{1, 1, 10}))
	writeSegment(t, dir, segment.ID{Txn: 1, Num: 1}, makeBlock([]schema.Datum{1, 1, 11}))

	s.AddCommittedSegment(segment.ID{Txn: 1, Num: 0})
	s.AddCommittedSegment(segment.ID{Txn: 1, Num: 1})

	rows := collect(t, s)
	require.Len(t, rows, 1)
	assert.Equal(t, schema.Datum(11), rows[0].Values[2])
}

func TestUnsavedBlockBeatsCommitted(t *testing.T) {
	s, dir := newTestScan(t)

	writeSegment(t, dir, segment.ID{Txn: 7, Num: 0}, makeBlock([]schema.Datum{2, 2, 42}))
	s.AddCommittedSegment(segment.ID{Txn: 7, Num: 0})

	// An unflushed write from a transaction that has no id yet must still
	// shadow committed data at the same coordinate.
	s.AddOwnBlock(makeBlock([]schema.Datum{2, 2, 99}), 0)

	rows := collect(t, s)
	require.Len(t, rows, 1)
	assert.Equal(t, schema.Datum(99), rows[0].Values[2])
	assert.Equal(t, segment.TxnID(0), rows[0].TxnID)
}

func TestOwnSegmentBeatsCommitted(t *testing.T) {
	s, dir := newTestScan(t)

	writeSegment(t, dir, segment.ID{Txn: 1, Num: 0}, makeBlock([]schema.Datum{5, 5, 1}))
	own := writeSegment(t, dir, segment.ID{Txn: 3, Num: 0}, makeBlock([]schema.Datum{5, 5, 2}))

	s.AddCommittedSegment(segment.ID{Txn: 1, Num: 0})
	s.AddOwnSegment(own, 3)

	rows := collect(t, s)
	require.Len(t, rows, 1)
	assert.Equal(t, schema.Datum(2), rows[0].Values[2])
	assert.Equal(t, segment.TxnID(3), rows[0].TxnID)
}

func TestUnsavedBlockBeatsOwnSegment(t *testing.T) {
	s, dir := newTestScan(t)

	own := writeSegment(t, dir, segment.ID{Txn: 3, Num: 0}, makeBlock([]schema.Datum{5, 5, 2}))

	s.AddOwnSegment(own, 3)
	s.AddOwnBlock(makeBlock([]schema.Datum{5, 5, 9}), 3)

	rows := collect(t, s)
	require.Len(t, rows, 1)
	assert.Equal(t, schema.Datum(9), rows[0].Values[2])
}

func TestStrictlyIncreasingOutput(t *testing.T) {
	s, dir := newTestScan(t)

	writeSegment(t, dir, segment.ID{Txn: 1, Num: 0},
		makeBlock([]schema.Datum{1, 1, 10}, []schema.Datum{1, 5, 11}),
		makeBlock([]schema.Datum{600, 1, 12}),
	)
	writeSegment(t, dir, segment.ID{Txn: 2, Num: 0},
		makeBlock([]schema.Datum{1, 5, 21}, []schema.Datum{3, 3, 22}),
	)

	s.AddCommittedSegment(segment.ID{Txn: 1, Num: 0})
	s.AddCommittedSegment(segment.ID{Txn: 2, Num: 0})
	s.AddOwnBlock(makeBlock([]schema.Datum{2, 9, 33}), 0)

	rows := collect(t, s)
	require.Len(t, rows, 5)
	for i := 1; i < len(rows); i++ {
		assert.Equal(t, -1, schema.ComparePoints(2, rows[i-1].Values, rows[i].Values),
			"rows must be strictly increasing")
	}

	// The overlapping coordinate (1,5) must come from txn 2.
	for _, row := range rows {
		if row.Values[0] == 1 && row.Values[1] == 5 {
			assert.Equal(t, schema.Datum(21), row.Values[2])
		}
	}
}

func TestMissingSegmentSurfacesError(t *testing.T) {
	s, _ := newTestScan(t)
	s.AddCommittedSegment(segment.ID{Txn: 42, Num: 0})

	assert.False(t, s.Next())
	assert.Error(t, s.Err())
}
