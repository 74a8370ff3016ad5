package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/lattice/pkg/schema"
)

func TestSliceInsertionParamsOneDimension(t *testing.T) {
	b := New(1)

	// One empty dimension: inserting can only open the single slot.
	params := b.sliceInsertionParams(0, 0)
	assert.Equal(t, 1, params.newSize)
	assert.Equal(t, 0, params.moves)

	b.dims[0] = append(b.dims[0], 0)

	// Inserting before the existing element must move it.
	params = b.sliceInsertionParams(0, 0)
	assert.Equal(t, 2, params.newSize)
	assert.Equal(t, 1, params.moves)
	assert.Equal(t, 1, params.len)
	assert.Equal(t, 1, params.step)
	assert.Equal(t, 0, params.offset)

	// Inserting after it must not.
	params = b.sliceInsertionParams(0, 1)
	assert.Equal(t, 2, params.newSize)
	assert.Equal(t, 0, params.moves)

	b.dims[0] = append(b.dims[0], 1)

	// Inserting at the front moves both.
	params = b.sliceInsertionParams(0, 0)
	assert.Equal(t, 3, params.newSize)
	assert.Equal(t, 1, params.moves)
	assert.Equal(t, 2, params.len)
	assert.Equal(t, 1, params.step)
	assert.Equal(t, 0, params.offset)

	// Inserting in the middle moves one; the region length stays 2 and the
	// copy simply truncates at the end of the array.
	params = b.sliceInsertionParams(0, 1)
	assert.Equal(t, 3, params.newSize)
	assert.Equal(t, 1, params.moves)
	assert.Equal(t, 2, params.len)
	assert.Equal(t, 1, params.step)
	assert.Equal(t, 1, params.offset)

	// Inserting past the end moves nothing.
	params = b.sliceInsertionParams(0, 3)
	assert.Equal(t, 3, params.newSize)
	assert.Equal(t, 0, params.moves)
}

func TestSliceInsertionParamsTwoDimensions(t *testing.T) {
	b := New(2)
	b.dims[1] = append(b.dims[1], 0)

	params := b.sliceInsertionParams(0, 0)
	assert.Equal(t, 1, params.newSize)
	assert.Equal(t, 0, params.moves)

	b.dims[0] = append(b.dims[0], 0)

	params = b.sliceInsertionParams(0, 0)
	assert.Equal(t, 2, params.newSize)
	assert.Equal(t, 1, params.moves)
	assert.Equal(t, 1, params.len)
	assert.Equal(t, 1, params.step)
	assert.Equal(t, 0, params.offset)

	params = b.sliceInsertionParams(0, 1)
	assert.Equal(t, 2, params.newSize)
	assert.Equal(t, 0, params.moves)

	b.dims[0] = append(b.dims[0], 1)

	params = b.sliceInsertionParams(0, 0)
	assert.Equal(t, 3, params.newSize)
	assert.Equal(t, 1, params.moves)
	assert.Equal(t, 2, params.len)
	assert.Equal(t, 1, params.step)
	assert.Equal(t, 0, params.offset)

	params = b.sliceInsertionParams(0, 1)
	assert.Equal(t, 3, params.newSize)
	assert.Equal(t, 1, params.moves)
	assert.Equal(t, 2, params.len)
	assert.Equal(t, 1, params.step)
	assert.Equal(t, 1, params.offset)
}

func TestSliceInsertOneDimension(t *testing.T) {
	b := New(1)

	require.Len(t, b.dims, 1)
	require.Empty(t, b.dims[0])

	b.addDimensionValue(0, 42)

	require.Equal(t, []schema.Datum{42}, b.dims[0])
	require.Len(t, b.values, 1)
	assert.False(t, b.present[0])

	b.present[0] = true
	b.values[0] = 1000

	// Add a value before the previous one, requiring it to be shifted.
	b.addDimensionValue(0, 40)

	require.Equal(t, []schema.Datum{40, 42}, b.dims[0])
	require.Len(t, b.values, 2)
	assert.False(t, b.present[0])
	assert.True(t, b.present[1])
	assert.Equal(t, schema.Datum(1000), b.values[1])

	b.present[0] = true
	b.values[0] = 2000

	// Add one in between.
	b.addDimensionValue(0, 41)

	require.Equal(t, []schema.Datum{40, 41, 42}, b.dims[0])
	require.Len(t, b.values, 3)
	assert.True(t, b.present[0])
	assert.Equal(t, schema.Datum(2000), b.values[0])
	assert.False(t, b.present[1])
	assert.True(t, b.present[2])
	assert.Equal(t, schema.Datum(1000), b.values[2])
}

func TestSliceInsertTwoDimensions(t *testing.T) {
	b := New(2)

	b.addDimensionValue(0, 42)
	require.Equal(t, []schema.Datum{42}, b.dims[0])
	// The other axis is still empty, so there are no slots yet.
	require.Empty(t, b.values)

	b.addDimensionValue(1, 99)
	require.Equal(t, []schema.Datum{99}, b.dims[1])
	require.Len(t, b.values, 1)
}

func TestAddRowOverwrites(t *testing.T) {
	b := New(2)
	b.AddRow([]schema.Datum{0, 0, 1})
	b.AddRow([]schema.Datum{0, 0, 2})

	rows := collectRows(b)
	require.Len(t, rows, 1)
	assert.Equal(t, []schema.Datum{0, 0, 2}, rows[0])
}

func TestDensityInvariant(t *testing.T) {
	b := New(3)
	coords := [][]schema.Datum{
		{5, 1, 9, 100}, {2, 8, 3, 200}, {5, 8, 9, 300},
		{2, 1, 3, 400}, {9, 9, 9, 500}, {2, 1, 9, 600},
	}
	for _, row := range coords {
		b.AddRow(row)

		product := 1
		for _, dimVals := range b.dims {
			for i := 1; i < len(dimVals); i++ {
				assert.Less(t, dimVals[i-1], dimVals[i])
			}
			product *= len(dimVals)
		}
		assert.Len(t, b.values, product)
		assert.Len(t, b.present, product)
	}

	// Every inserted row must still be retrievable with its value.
	rows := collectRows(b)
	assert.Len(t, rows, len(coords))
}

func TestIterationOrder(t *testing.T) {
	b := New(2)
	b.AddRow([]schema.Datum{9, 0, 101})
	b.AddRow([]schema.Datum{7, 4, 99})
	b.AddRow([]schema.Datum{7, 2, 98})
	b.AddRow([]schema.Datum{9, 9, 102})

	rows := collectRows(b)
	require.Len(t, rows, 4)
	assert.Equal(t, []schema.Datum{7, 2, 98}, rows[0])
	assert.Equal(t, []schema.Datum{7, 4, 99}, rows[1])
	assert.Equal(t, []schema.Datum{9, 0, 101}, rows[2])
	assert.Equal(t, []schema.Datum{9, 9, 102}, rows[3])

	for i := 1; i < len(rows); i++ {
		assert.Equal(t, -1, schema.ComparePoints(2, rows[i-1], rows[i]))
	}
}

func TestIterEmptyBlock(t *testing.T) {
	b := New(1)
	assert.Nil(t, b.Iter().Next())

	// An axis value without a present slot yields nothing either.
	b = New(1)
	b.addDimensionValue(0, 42)
	assert.Nil(t, b.Iter().Next())
}

func TestIterSkipsAbsentSlots(t *testing.T) {
	b := New(1)
	b.AddRow([]schema.Datum{42, 99})
	b.present[0] = false

	assert.Nil(t, b.Iter().Next())
}

func TestBounds(t *testing.T) {
	b := New(2)
	_, ok := b.StartPoint()
	assert.False(t, ok)

	b.AddRow([]schema.Datum{7, 4, 99})
	b.AddRow([]schema.Datum{3, 8, 100})

	start, ok := b.StartPoint()
	require.True(t, ok)
	assert.Equal(t, []schema.Datum{3, 4}, start)

	end, ok := b.EndPoint()
	require.True(t, ok)
	assert.Equal(t, []schema.Datum{7, 8}, end)
}

func collectRows(b *Block) [][]schema.Datum {
	var rows [][]schema.Datum
	iter := b.Iter()
	for row := iter.Next(); row != nil; row = iter.Next() {
		rows = append(rows, row)
	}
	return rows
}
