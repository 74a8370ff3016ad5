// Package schema defines the data model of a lattice database: unsigned
// integer datums, named dimensions with chunk sizes, named values, and the
// projection from a coordinate to the key of the block that stores it.
//
// A schema is fixed at database creation and persisted as a JSON sidecar in
// the database directory. Every row the store accepts is a tuple of
// len(Dimensions) coordinate datums followed by len(Values) value datums.
package schema

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/iamNilotpal/lattice/pkg/errors"
)

// Datum is the single scalar type of the store. All dimension coordinates
// and all measurement values are unsigned 64-bit integers.
type Datum = uint64

// Filename is the name of the schema sidecar inside the database directory.
const Filename = "schema.json"

// Dimension is one axis of the coordinate space. ChunkSize controls how
// coordinates are partitioned into blocks: rows whose coordinates fall in
// the same chunk on every axis share a block.
type Dimension struct {
	Name      string `json:"name"`
	ChunkSize Datum  `json:"chunk_size"`
}

// Value is one named measurement column.
type Value struct {
	Name string `json:"name"`
}

// Schema is the ordered set of dimensions and values of a database.
// Immutable after creation.
type Schema struct {
	Dimensions []Dimension `json:"dimensions"`
	Values     []Value     `json:"values"`
}

// ChunkKey identifies the block a coordinate belongs to. It is the tuple of
// per-dimension quotients by chunk size, packed into a string so it can be
// used directly as a map key.
type ChunkKey string

// NumDimensions returns the number of coordinate axes.
func (s *Schema) NumDimensions() int {
	return len(s.Dimensions)
}

// NumValues returns the number of value columns.
func (s *Schema) NumValues() int {
	return len(s.Values)
}

// RowWidth returns the number of datums in a full row: one per dimension
// followed by one per value.
func (s *Schema) RowWidth() int {
	return len(s.Dimensions) + len(s.Values)
}

// Validate checks the structural rules a schema must satisfy before a
// database can be created from it.
func (s *Schema) Validate() error {
	if len(s.Dimensions) == 0 {
		return errors.NewRequiredFieldError("dimensions")
	}
	if len(s.Values) == 0 {
		return errors.NewRequiredFieldError("values")
	}

	for _, dim := range s.Dimensions {
		if dim.Name == "" {
			return errors.NewRequiredFieldError("dimension.name")
		}
		if dim.ChunkSize == 0 {
			return errors.NewValidationError(
				nil, errors.ErrorCodeInvalidInput, "Dimension chunk size must be positive",
			).WithField(dim.Name).WithRule("range").WithProvided(dim.ChunkSize)
		}
	}

	for _, val := range s.Values {
		if val.Name == "" {
			return errors.NewRequiredFieldError("value.name")
		}
	}

	return nil
}

// ChunkKeyFor projects a row's coordinate onto the key of the block that
// stores it: the tuple of per-dimension quotients by chunk size. Only the
// first NumDimensions elements of values are consulted.
func (s *Schema) ChunkKeyFor(values []Datum) ChunkKey {
	buf := make([]byte, 8*len(s.Dimensions))
	for dimNo, dim := range s.Dimensions {
		quotient := values[dimNo] / dim.ChunkSize
		binary.BigEndian.PutUint64(buf[dimNo*8:], quotient)
	}
	return ChunkKey(buf)
}

// Load reads and validates the schema sidecar from a database directory.
func Load(databasePath string) (*Schema, error) {
	schemaPath := filepath.Join(databasePath, Filename)

	contents, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeSchema, "Failed to read schema file",
		).WithPath(schemaPath).WithFileName(Filename)
	}

	var schema Schema
	if err := json.Unmarshal(contents, &schema); err != nil {
		return nil, errors.NewValidationError(
			err, errors.ErrorCodeSchema, "Schema file is not valid JSON",
		).WithField("schema").WithRule("json")
	}

	if err := schema.Validate(); err != nil {
		return nil, err
	}

	return &schema, nil
}

// Save writes the schema sidecar into a database directory. Called exactly
// once, at database creation.
func (s *Schema) Save(databasePath string, mode os.FileMode) error {
	schemaPath := filepath.Join(databasePath, Filename)

	contents, err := json.Marshal(s)
	if err != nil {
		return errors.NewValidationError(
			err, errors.ErrorCodeSchema, "Failed to encode schema",
		).WithField("schema").WithRule("json")
	}

	if err := os.WriteFile(schemaPath, contents, mode); err != nil {
		return errors.NewStorageError(
			err, errors.ErrorCodeSchema, "Failed to write schema file",
		).WithPath(schemaPath).WithFileName(Filename)
	}

	return nil
}

// ComparePoints orders two coordinates lexicographically over their first
// numDims elements. It returns -1, 0 or 1 as a is less than, equal to, or
// greater than b.
func ComparePoints(numDims int, a, b []Datum) int {
	for i := 0; i < numDims; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}
