package block

import "github.com/iamNilotpal/lattice/pkg/schema"

// Iter walks a block's occupied slots in row-major coordinate order. It is a
// plain cursor over the block's arrays: it never modifies the block, and the
// block must not be mutated while an iterator is open. Several iterators may
// walk the same block independently.
type Iter struct {
	block      *Block
	indexes    []int // Per-axis position of the cursor.
	valueIndex int   // Flat slot position, kept in step with indexes.
}

// Iter returns a fresh iterator positioned before the block's first row.
func (b *Block) Iter() *Iter {
	return &Iter{
		block:   b,
		indexes: make([]int, len(b.dims)),
	}
}

// Next returns the next occupied row as the coordinate datums followed by
// the slot's value, or nil when the block is exhausted.
func (it *Iter) Next() []schema.Datum {
	b := it.block
	for {
		// The cursor has walked off the first axis: nothing left.
		if len(b.dims) == 0 || it.indexes[0] >= len(b.dims[0]) {
			return nil
		}
		if it.valueIndex >= len(b.values) {
			return nil
		}

		if !b.present[it.valueIndex] {
			it.increment()
			continue
		}

		row := make([]schema.Datum, 0, len(b.dims)+1)
		for i, idx := range it.indexes {
			row = append(row, b.dims[i][idx])
		}
		row = append(row, b.values[it.valueIndex])

		it.increment()
		return row
	}
}

// increment advances the cursor one slot: bump the last axis and carry
// leftward when an axis wraps.
func (it *Iter) increment() {
	it.valueIndex++
	incrPos := len(it.indexes) - 1
	for {
		it.indexes[incrPos]++
		if it.indexes[incrPos] >= len(it.block.dims[incrPos]) {
			if incrPos == 0 {
				break
			}
			it.indexes[incrPos] = 0
			incrPos--
			continue
		}
		break
	}
}
