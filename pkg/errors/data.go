package errors

// DataError is the error type for malformed or unexpected on-disk content.
// Where StorageError says "the filesystem failed us", DataError says "the
// bytes we read are not what the format promises": an unknown tag, a frame
// that ends early, an index entry pointing outside the file.
type DataError struct {
	*baseError
	segment string // Segment identifier ("txn.num") the bad content lives in.
	offset  int64  // Byte offset of the offending content within the file.
	tag     string // The tag (or would-be tag bytes) involved, if relevant.
}

// NewDataError creates a new data-content error.
func NewDataError(err error, code ErrorCode, msg string) *DataError {
	return &DataError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while keeping the DataError type.
func (de *DataError) WithMessage(msg string) *DataError {
	de.baseError.WithMessage(msg)
	return de
}

// WithCode sets the error code while keeping the DataError type.
func (de *DataError) WithCode(code ErrorCode) *DataError {
	de.baseError.WithCode(code)
	return de
}

// WithDetail adds contextual information while keeping the DataError type.
func (de *DataError) WithDetail(key string, value any) *DataError {
	de.baseError.WithDetail(key, value)
	return de
}

// WithSegment records which segment contains the malformed content.
func (de *DataError) WithSegment(segment string) *DataError {
	de.segment = segment
	return de
}

// WithOffset records where in the file the malformed content was found.
func (de *DataError) WithOffset(offset int64) *DataError {
	de.offset = offset
	return de
}

// WithTag records the tag bytes involved in the failure.
func (de *DataError) WithTag(tag string) *DataError {
	de.tag = tag
	return de
}

// Segment returns the segment identifier containing the malformed content.
func (de *DataError) Segment() string {
	return de.segment
}

// Offset returns the byte offset of the malformed content.
func (de *DataError) Offset() int64 {
	return de.offset
}

// Tag returns the tag bytes involved in the failure.
func (de *DataError) Tag() string {
	return de.tag
}
