package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/lattice/pkg/errors"
)

func sensorSchema() *Schema {
	return &Schema{
		Dimensions: []Dimension{
			{Name: "time", ChunkSize: 500},
			{Name: "sensor_id", ChunkSize: 100},
		},
		Values: []Value{{Name: "value"}},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, sensorSchema().Validate())

	bad := &Schema{Values: []Value{{Name: "v"}}}
	assert.Error(t, bad.Validate())

	bad = &Schema{Dimensions: []Dimension{{Name: "t", ChunkSize: 10}}}
	assert.Error(t, bad.Validate())

	bad = sensorSchema()
	bad.Dimensions[0].ChunkSize = 0
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	bad = sensorSchema()
	bad.Values[0].Name = ""
	assert.Error(t, bad.Validate())
}

func TestRowWidth(t *testing.T) {
	s := sensorSchema()
	assert.Equal(t, 2, s.NumDimensions())
	assert.Equal(t, 1, s.NumValues())
	assert.Equal(t, 3, s.RowWidth())
}

func TestChunkKeyGroupsCoordinates(t *testing.T) {
	s := sensorSchema()

	// Same chunk on every axis: same key.
	assert.Equal(t, s.ChunkKeyFor([]Datum{7, 4, 99}), s.ChunkKeyFor([]Datum{499, 99, 1}))

	// Crossing a chunk boundary on either axis changes the key.
	assert.NotEqual(t, s.ChunkKeyFor([]Datum{7, 4, 99}), s.ChunkKeyFor([]Datum{500, 4, 99}))
	assert.NotEqual(t, s.ChunkKeyFor([]Datum{7, 4, 99}), s.ChunkKeyFor([]Datum{7, 100, 99}))
}

func TestChunkKeyIgnoresValues(t *testing.T) {
	s := sensorSchema()
	assert.Equal(t, s.ChunkKeyFor([]Datum{7, 4, 99}), s.ChunkKeyFor([]Datum{7, 4, 12345}))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := sensorSchema()

	require.NoError(t, s.Save(dir, 0644))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestSaveUsesFixedJSONShape(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, sensorSchema().Save(dir, 0644))

	contents, err := os.ReadFile(filepath.Join(dir, Filename))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"dimensions":[{"name":"time","chunk_size":500},{"name":"sensor_id","chunk_size":100}],"values":[{"name":"value"}]}`,
		string(contents),
	)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.ErrorCodeSchema, errors.GetErrorCode(err))
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, Filename), []byte("{not json"), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestComparePoints(t *testing.T) {
	assert.Equal(t, 0, ComparePoints(2, []Datum{1, 2, 99}, []Datum{1, 2, 55}))
	assert.Equal(t, -1, ComparePoints(2, []Datum{1, 2}, []Datum{1, 3}))
	assert.Equal(t, 1, ComparePoints(2, []Datum{2, 0}, []Datum{1, 9}))
	assert.Equal(t, -1, ComparePoints(2, []Datum{1, 9}, []Datum{2, 0}))
}
