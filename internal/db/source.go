package db

import (
	"github.com/iamNilotpal/lattice/internal/block"
	"github.com/iamNilotpal/lattice/internal/scan"
	"github.com/iamNilotpal/lattice/internal/segment"
	"github.com/iamNilotpal/lattice/pkg/cache"
)

// scanSource resolves segment and block references for one scan, serving
// them through the database caches. Every handle it takes out stays pinned
// until the scan closes, so nothing a scan is reading can be evicted out
// from under it.
type scanSource struct {
	db  *Database
	txn *Transaction

	segmentHandles []*cache.Handle[*segment.Segment]
	blockHandles   []*cache.Handle[*block.Block]
}

// Segment materializes a segment by id: the transaction's own staged
// segments are served directly, everything else goes through the segment
// cache and is loaded from disk on a miss.
func (src *scanSource) Segment(id segment.ID) (*segment.Segment, error) {
	for _, seg := range src.txn.uncommitted {
		if seg.ID == id {
			return seg, nil
		}
	}

	if handle, ok := src.db.segments.Get(id); ok {
		src.segmentHandles = append(src.segmentHandles, handle)
		return handle.Value(), nil
	}

	seg, err := segment.Load(src.db.log, src.db.path, id)
	if err != nil {
		return nil, err
	}

	handle := src.db.segments.Add(id, seg)
	src.segmentHandles = append(src.segmentHandles, handle)
	return seg, nil
}

// Block materializes a block by id through the block cache, reading it from
// its segment file on a miss.
func (src *scanSource) Block(id segment.BlockID) (*block.Block, error) {
	if handle, ok := src.db.blocks.Get(id); ok {
		src.blockHandles = append(src.blockHandles, handle)
		return handle.Value(), nil
	}

	seg, err := src.Segment(id.Segment)
	if err != nil {
		return nil, err
	}

	blk, err := seg.LoadOneBlock(id.Block)
	if err != nil {
		return nil, err
	}

	handle := src.db.blocks.Add(id, blk)
	src.blockHandles = append(src.blockHandles, handle)
	return blk, nil
}

// Close releases every handle the scan pinned.
func (src *scanSource) Close() error {
	for _, handle := range src.segmentHandles {
		handle.Release()
	}
	for _, handle := range src.blockHandles {
		handle.Release()
	}
	src.segmentHandles = nil
	src.blockHandles = nil
	return nil
}

var _ scan.Source = (*scanSource)(nil)
