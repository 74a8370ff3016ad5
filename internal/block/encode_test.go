package block

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/lattice/pkg/schema"
)

func roundTrip(t *testing.T, b *Block) *Block {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, b.Encode(&buf, 1))

	decoded := New(0)
	require.NoError(t, decoded.Decode(bufio.NewReader(&buf)))
	return decoded
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := New(2)
	b.AddRow([]schema.Datum{7, 4, 99})
	b.AddRow([]schema.Datum{9, 0, 101})
	b.AddRow([]schema.Datum{7, 0, 55})

	decoded := roundTrip(t, b)

	assert.Equal(t, b.dims, decoded.dims)
	assert.Equal(t, b.present, decoded.present)
	assert.Equal(t, b.values, decoded.values)
	assert.Equal(t, collectRows(b), collectRows(decoded))
}

func TestEncodeDecodePreservesAbsentSlots(t *testing.T) {
	// A sparse block: 3x3 slot grid with only the corners and the centre
	// present.
	b := New(2)
	b.AddRow([]schema.Datum{1, 1, 10})
	b.AddRow([]schema.Datum{1, 3, 11})
	b.AddRow([]schema.Datum{3, 1, 12})
	b.AddRow([]schema.Datum{3, 3, 13})
	b.AddRow([]schema.Datum{2, 2, 14})

	decoded := roundTrip(t, b)

	require.Len(t, decoded.present, 9)
	assert.Equal(t, b.present, decoded.present)
	assert.Equal(t, collectRows(b), collectRows(decoded))
}

func TestEncodeDecodeSingleRow(t *testing.T) {
	b := New(2)
	b.AddRow([]schema.Datum{7, 4, 99})

	decoded := roundTrip(t, b)

	rows := collectRows(decoded)
	require.Len(t, rows, 1)
	assert.Equal(t, []schema.Datum{7, 4, 99}, rows[0])
}

func TestEncodeDecodeLargeValues(t *testing.T) {
	b := New(1)
	big := schema.Datum(1) << 63
	b.AddRow([]schema.Datum{big, big + 1})

	decoded := roundTrip(t, b)

	rows := collectRows(decoded)
	require.Len(t, rows, 1)
	assert.Equal(t, []schema.Datum{big, big + 1}, rows[0])
}
