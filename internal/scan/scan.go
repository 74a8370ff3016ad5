// Package scan implements the merging iterator behind queries. A scan is
// seeded with things that can produce rows — committed segment ids, the
// transaction's own staged segments, and its unsaved in-memory blocks — and
// yields every visible coordinate exactly once, in ascending coordinate
// order, choosing the newest writer wherever sources overlap.
//
// Sources wait in a priority queue ordered by their start point and are
// activated lazily: a segment id is only fetched from disk once the scan
// reaches its start point, a segment fans out into per-block entries, and a
// block becomes a live cursor. The live set holds every cursor whose range
// the scan has entered; at each step the smallest current row wins, and all
// cursors sitting on that same coordinate advance together so older
// versions are silently dropped.
package scan

import (
	"container/heap"

	"go.uber.org/zap"

	"github.com/iamNilotpal/lattice/internal/block"
	"github.com/iamNilotpal/lattice/internal/segment"
	"github.com/iamNilotpal/lattice/pkg/schema"
)

// Source resolves lazily referenced segments and blocks for a scan, and
// keeps whatever it resolves pinned until the scan is closed.
type Source interface {
	// Segment materializes a segment by id.
	Segment(id segment.ID) (*segment.Segment, error)
	// Block materializes a block by id.
	Block(id segment.BlockID) (*block.Block, error)
	// Close releases everything the source pinned on the scan's behalf.
	Close() error
}

// QueryRow is one merged result row: the full tuple of coordinate and value
// datums, and the transaction whose write produced it.
type QueryRow struct {
	TxnID  segment.TxnID
	Values []schema.Datum
}

// Version ranks compete when several sources cover the same coordinate: any
// of the transaction's own writes beat all committed data, and among its own
// writes the unsaved blocks beat staged segments, later staged segments beat
// earlier ones. Committed sources rank by transaction id, then by segment
// number, because a coordinate rewritten after a flush lands in a later
// segment of the same transaction.
const (
	rankOwnSegmentBase = uint64(1) << 52
	rankUnsavedBlock   = uint64(1) << 60
)

// committedRank folds a committed segment's id into a single version rank.
// Segment numbers beyond 16 bits saturate; ordering within such transactions
// degrades to transaction id alone.
func committedRank(id segment.ID) uint64 {
	num := uint64(id.Num)
	if num > 0xffff {
		num = 0xffff
	}
	return uint64(id.Txn)<<16 | num
}

type itemKind int

const (
	kindSegmentID itemKind = iota
	kindSegment
	kindBlockID
	kindBlock
)

// queuedItem is a not-yet-activated source, keyed by a lower bound of its
// first row.
type queuedItem struct {
	startPoint []schema.Datum
	kind       itemKind
	rank       uint64        // Version rank inherited by everything it fans out into.
	attrib     segment.TxnID // Transaction id stamped on emitted rows.

	segmentID segment.ID
	segment   *segment.Segment
	blockID   segment.BlockID
	block     *block.Block
}

// liveItem is an activated cursor contributing rows to the merge.
type liveItem struct {
	iter    *block.Iter
	current []schema.Datum
	rank    uint64
	attrib  segment.TxnID
}

// Scan merges rows from overlapping sources. Use it like bufio.Scanner:
// Next advances, Row reads the current row, Err reports a terminal failure,
// Close releases pinned resources.
type Scan struct {
	source  Source
	log     *zap.SugaredLogger
	numDims int

	queue itemHeap
	live  []liveItem

	row QueryRow
	err error
}

// New creates an empty scan over numDims-dimensional coordinates.
func New(log *zap.SugaredLogger, source Source, numDims int) *Scan {
	s := &Scan{source: source, log: log, numDims: numDims}
	s.queue.numDims = numDims
	return s
}

// AddCommittedSegment enqueues a committed segment by id. The segment's
// bounds are unknown until it is loaded, so it waits at the zero point and
// activates before anything else; activation re-enqueues its blocks at their
// exact bounds.
func (s *Scan) AddCommittedSegment(id segment.ID) {
	heap.Push(&s.queue, &queuedItem{
		startPoint: make([]schema.Datum, s.numDims),
		kind:       kindSegmentID,
		rank:       committedRank(id),
		attrib:     id.Txn,
		segmentID:  id,
	})
}

// AddOwnSegment enqueues one of the scanning transaction's staged segments.
// Rows from it are attributed to attrib and outrank all committed data.
func (s *Scan) AddOwnSegment(seg *segment.Segment, attrib segment.TxnID) {
	start, ok := seg.MinBounds()
	if !ok {
		s.log.Debugw("Not enqueuing empty segment", "segment", seg.ID)
		return
	}
	heap.Push(&s.queue, &queuedItem{
		startPoint: start,
		kind:       kindSegment,
		rank:       rankOwnSegmentBase + uint64(seg.ID.Num),
		attrib:     attrib,
		segment:    seg,
	})
}

// AddOwnBlock enqueues one of the scanning transaction's unsaved blocks.
// Rows from it are attributed to attrib and outrank every other source.
func (s *Scan) AddOwnBlock(b *block.Block, attrib segment.TxnID) {
	start, ok := b.StartPoint()
	if !ok {
		s.log.Debugw("Not enqueuing empty block")
		return
	}
	s.addBlock(b, start, rankUnsavedBlock, attrib)
}

func (s *Scan) addBlockID(id segment.BlockID, start []schema.Datum, rank uint64, attrib segment.TxnID) {
	heap.Push(&s.queue, &queuedItem{
		startPoint: start,
		kind:       kindBlockID,
		rank:       rank,
		attrib:     attrib,
		blockID:    id,
	})
}

func (s *Scan) addBlock(b *block.Block, start []schema.Datum, rank uint64, attrib segment.TxnID) {
	heap.Push(&s.queue, &queuedItem{
		startPoint: start,
		kind:       kindBlock,
		rank:       rank,
		attrib:     attrib,
		block:      b,
	})
}

// Next advances the scan to the next merged row. It returns false at the
// end of the scan or on error; check Err afterwards.
func (s *Scan) Next() bool {
	if s.err != nil {
		return false
	}

	for {
		// Find the frontier: the smallest coordinate among live cursors and
		// the queue's first start point. If the queue holds the minimum (or
		// ties it), sources must be activated before a row can be emitted.
		var current []schema.Datum
		needDequeue := false
		if top := s.queue.peek(); top != nil {
			current = top.startPoint
			needDequeue = true
		}
		for i := range s.live {
			item := &s.live[i]
			if current == nil || schema.ComparePoints(s.numDims, item.current, current) < 0 {
				needDequeue = false
				current = item.current
			}
		}

		if current == nil {
			return false
		}

		if needDequeue {
			if !s.checkQueue(current) {
				return false
			}
			continue
		}

		// Every live cursor sitting on the frontier advances; the one from
		// the newest writer supplies the emitted row, the rest are older
		// versions of the same coordinate and are dropped.
		var bestRow []schema.Datum
		var bestRank uint64
		var bestAttrib segment.TxnID
		for i := range s.live {
			item := &s.live[i]
			if schema.ComparePoints(s.numDims, item.current, current) != 0 {
				continue
			}
			if bestRow == nil || item.rank > bestRank {
				bestRow = item.current
				bestRank = item.rank
				bestAttrib = item.attrib
			}
			item.current = item.iter.Next()
		}

		// Drop exhausted cursors from the live set.
		remaining := s.live[:0]
		for _, item := range s.live {
			if item.current != nil {
				remaining = append(remaining, item)
			}
		}
		s.live = remaining

		if bestRow != nil {
			s.row = QueryRow{TxnID: bestAttrib, Values: bestRow}
			return true
		}
	}
}

// Row returns the row produced by the last successful Next.
func (s *Scan) Row() QueryRow {
	return s.row
}

// Err returns the failure that terminated the scan, if any.
func (s *Scan) Err() error {
	return s.err
}

// Close releases the segments and blocks the scan pinned through its source.
func (s *Scan) Close() error {
	return s.source.Close()
}

// checkQueue activates every queued source whose start point has been
// reached. Returns false if activation failed; the scan's error is set.
func (s *Scan) checkQueue(current []schema.Datum) bool {
	for {
		top := s.queue.peek()
		if top == nil || schema.ComparePoints(s.numDims, top.startPoint, current) > 0 {
			return true
		}
		if err := s.activate(heap.Pop(&s.queue).(*queuedItem)); err != nil {
			s.err = err
			return false
		}
	}
}

// activate resolves one dequeued source. Segment ids load their segment,
// segments fan out into block ids at their indexed bounds, block ids load
// their block, and blocks become live cursors.
func (s *Scan) activate(item *queuedItem) error {
	switch item.kind {
	case kindSegmentID:
		seg, err := s.source.Segment(item.segmentID)
		if err != nil {
			return err
		}
		s.fanOutSegment(seg, item.rank, item.attrib)

	case kindSegment:
		s.fanOutSegment(item.segment, item.rank, item.attrib)

	case kindBlockID:
		blk, err := s.source.Block(item.blockID)
		if err != nil {
			return err
		}
		s.addBlock(blk, item.startPoint, item.rank, item.attrib)

	case kindBlock:
		iter := item.block.Iter()
		first := iter.Next()
		if first == nil {
			return nil
		}
		s.live = append(s.live, liveItem{
			iter:    iter,
			current: first,
			rank:    item.rank,
			attrib:  item.attrib,
		})
	}
	return nil
}

// fanOutSegment enqueues each block of a loaded segment at the exact start
// point its index records.
func (s *Scan) fanOutSegment(seg *segment.Segment, rank uint64, attrib segment.TxnID) {
	for blockNum := range seg.BlockInfo {
		s.addBlockID(
			segment.BlockID{Segment: seg.ID, Block: segment.BlockNum(blockNum)},
			seg.BlockInfo[blockNum].MinBounds,
			rank,
			attrib,
		)
	}
}

// itemHeap is a min-heap of queued sources ordered by start point.
type itemHeap struct {
	items   []*queuedItem
	numDims int
}

func (h *itemHeap) Len() int { return len(h.items) }

func (h *itemHeap) Less(i, j int) bool {
	return schema.ComparePoints(h.numDims, h.items[i].startPoint, h.items[j].startPoint) < 0
}

func (h *itemHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *itemHeap) Push(x any) { h.items = append(h.items, x.(*queuedItem)) }

func (h *itemHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return item
}

func (h *itemHeap) peek() *queuedItem {
	if len(h.items) == 0 {
		return nil
	}
	return h.items[0]
}
