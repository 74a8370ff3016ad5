// Package segment implements the on-disk container of blocks: a single file
// holding each block as a tagged compressed frame, followed by a compressed
// index of block bounds and positions, and a trailer pointing back at the
// index so readers can find it by seeking to the end.
//
// Segments are written under a temporary name and renamed to their visible
// name at commit. The identifier scheme ties every segment to the
// transaction that produced it.
package segment

import "fmt"

// TxnID identifies a transaction. Ids are allocated monotonically by the
// database and never reused within its lifetime; id 0 means "not assigned".
type TxnID uint32

// Num is a segment's ordinal within its transaction, starting at 0.
type Num uint32

// BlockNum is a block's ordinal within its segment.
type BlockNum uint16

// ID uniquely identifies a segment within a database.
type ID struct {
	Txn TxnID
	Num Num
}

// String renders the id the way segment filenames do.
func (id ID) String() string {
	return fmt.Sprintf("%08x.%08x", uint32(id.Txn), uint32(id.Num))
}

// Less orders ids by transaction, then by segment number. Used by the
// database's committed-segment registry.
func (id ID) Less(other ID) bool {
	if id.Txn != other.Txn {
		return id.Txn < other.Txn
	}
	return id.Num < other.Num
}

// BlockID uniquely identifies a block within a database.
type BlockID struct {
	Segment ID
	Block   BlockNum
}

// String renders the block id for logs.
func (id BlockID) String() string {
	return fmt.Sprintf("%s.%04x", id.Segment, uint16(id.Block))
}
