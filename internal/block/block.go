// Package block implements the in-memory unit of storage: a dense,
// multidimensional sparse array holding every row of one chunk of the
// coordinate space.
//
// A block keeps, per dimension axis, the sorted list of distinct coordinate
// values seen so far, and a flat slot array of length equal to the product of
// the axis sizes. Slot i corresponds to the coordinate obtained by indexing
// each axis in row-major order with the last axis varying fastest. A slot is
// either absent or holds one value datum; writing an existing coordinate
// overwrites its slot.
//
// Inserting a previously unseen coordinate value on an axis stretches the
// slot array in place: the array grows at the tail and the regions after the
// insertion position shift upward, highest region first, so no staging
// buffer is needed and no source is overwritten before it has been copied.
package block

import (
	"slices"

	"github.com/iamNilotpal/lattice/pkg/schema"
)

// Block is a dense store for the rows of one chunk. The zero value is not
// usable; create blocks with New.
type Block struct {
	dims    [][]schema.Datum // Sorted distinct coordinate values per axis.
	present []bool           // Slot occupancy, parallel to values.
	values  []schema.Datum   // Slot payloads, one per coordinate combination.
}

// sliceInsertionParams describes the in-place moves needed to open a new
// index on one axis of the slot array.
type sliceInsertionParams struct {
	newSize int // Slot count after the insertion.
	moves   int // Number of regions to shift (product of sizes before the axis).
	len     int // Slot length of one region (axis size times step).
	step    int // Stride of the axis (product of sizes after it).
	offset  int // Position within each region where the new slice opens.
}

// New creates an empty block with the given number of dimension axes.
func New(numDimensions int) *Block {
	return &Block{dims: make([][]schema.Datum, numDimensions)}
}

// NumDimensions returns the number of coordinate axes.
func (b *Block) NumDimensions() int {
	return len(b.dims)
}

// AddRow inserts one row into the block. The first NumDimensions elements of
// values are the coordinate; the remaining elements are value columns,
// written left to right into the coordinate's slot so the last column wins.
// Writing a coordinate that already has a value overwrites it.
func (b *Block) AddRow(values []schema.Datum) {
	dimIdxs := make([]int, len(b.dims))
	for dimNo := range b.dims {
		dimIdxs[dimNo] = b.addDimensionValue(dimNo, values[dimNo])
	}

	idx := b.slotIndex(dimIdxs)
	for valueNo := len(b.dims); valueNo < len(values); valueNo++ {
		b.present[idx] = true
		b.values[idx] = values[valueNo]
	}
}

// slotIndex converts per-axis indexes into the row-major slot index, with
// the last axis varying fastest.
func (b *Block) slotIndex(dimIndexes []int) int {
	idx := 0
	for i, x := range dimIndexes {
		if i > 0 {
			idx *= len(b.dims[i])
		}
		idx += x
	}
	return idx
}

// addDimensionValue locates value on the given axis, inserting it at its
// sorted position (and stretching the slot array) if it is new. Returns the
// axis index of the value.
func (b *Block) addDimensionValue(dimNo int, value schema.Datum) int {
	idx, found := slices.BinarySearch(b.dims[dimNo], value)
	if found {
		return idx
	}

	b.insertSlice(dimNo, idx)
	b.dims[dimNo] = slices.Insert(b.dims[dimNo], idx, value)
	return idx
}

// insertSlice opens index idx on axis dimNo in the slot array, shifting
// existing regions upward and clearing the newly opened windows. Regions are
// moved from the highest down so sources are never overwritten before being
// read.
func (b *Block) insertSlice(dimNo, idx int) {
	params := b.sliceInsertionParams(dimNo, idx)

	b.grow(params.newSize)

	for i := params.moves - 1; i >= 0; i-- {
		fromOffset := i*params.len + params.offset
		toOffset := fromOffset + (i+1)*params.step
		// A full-length copy deliberately reaches into the next region: it
		// carries that region's leading slots to their shifted position. The
		// topmost copy is truncated at the end of the array.
		b.copySlots(fromOffset, toOffset, params.len)
		b.clearSlots(fromOffset, toOffset)
	}
}

// sliceInsertionParams computes the move plan for opening index on axis
// dimNo. If the slot array is empty on some other axis, or the insertion is
// past the end of the occupied region, there is nothing to move.
func (b *Block) sliceInsertionParams(dimNo, index int) sliceInsertionParams {
	numMoves := 1
	for _, dim := range b.dims[:dimNo] {
		numMoves *= len(dim)
	}

	moveStep := 1
	for _, dim := range b.dims[dimNo+1:] {
		moveStep *= len(dim)
	}

	axisSize := len(b.dims[dimNo])
	moveSize := axisSize * moveStep
	newSize := numMoves * (axisSize + 1) * moveStep
	currentSize := numMoves * moveSize
	moveOffset := moveStep * index

	if moveSize == 0 || moveOffset >= currentSize {
		numMoves = 0
	}

	return sliceInsertionParams{
		newSize: newSize,
		moves:   numMoves,
		len:     moveSize,
		step:    moveStep,
		offset:  moveOffset,
	}
}

// grow extends the slot array to newSize with absent slots at the tail.
func (b *Block) grow(newSize int) {
	for len(b.values) < newSize {
		b.values = append(b.values, 0)
		b.present = append(b.present, false)
	}
}

// copySlots moves num slots from fromIdx to toIdx. The copy is truncated at
// the end of the array; the grow already cleared the tail, so a shortened
// copy is equivalent.
func (b *Block) copySlots(fromIdx, toIdx, num int) {
	if toIdx+num > len(b.values) {
		num = len(b.values) - toIdx
	}
	if num <= 0 {
		return
	}
	copy(b.values[toIdx:toIdx+num], b.values[fromIdx:fromIdx+num])
	copy(b.present[toIdx:toIdx+num], b.present[fromIdx:fromIdx+num])
}

// clearSlots marks the window [fromIdx, toIdx) absent.
func (b *Block) clearSlots(fromIdx, toIdx int) {
	for i := fromIdx; i < toIdx; i++ {
		b.present[i] = false
		b.values[i] = 0
	}
}

// StartPoint returns the minimum coordinate of the block: the first value of
// every axis. The second result is false if any axis is still empty.
func (b *Block) StartPoint() ([]schema.Datum, bool) {
	point := make([]schema.Datum, 0, len(b.dims))
	for _, dimVals := range b.dims {
		if len(dimVals) == 0 {
			return nil, false
		}
		point = append(point, dimVals[0])
	}
	return point, true
}

// EndPoint returns the maximum coordinate of the block: the last value of
// every axis. The second result is false if any axis is still empty.
func (b *Block) EndPoint() ([]schema.Datum, bool) {
	point := make([]schema.Datum, 0, len(b.dims))
	for _, dimVals := range b.dims {
		if len(dimVals) == 0 {
			return nil, false
		}
		point = append(point, dimVals[len(dimVals)-1])
	}
	return point, true
}
