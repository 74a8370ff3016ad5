package errors

// StorageError is the error type for failures crossing the filesystem
// boundary. It embeds baseError for the standard code/cause/details behavior
// and adds the file coordinates needed to pinpoint where a failure happened.
type StorageError struct {
	*baseError
	segment  string // Segment identifier ("txn.num") involved, if any.
	offset   int64  // Byte offset within the file where the problem happened.
	fileName string // Base name of the file that caused the issue.
	path     string // Full path of the file that caused the issue.
}

// NewStorageError creates a new storage-specific error.
func NewStorageError(err error, code ErrorCode, msg string) *StorageError {
	return &StorageError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while keeping the StorageError type
// through the builder chain.
func (se *StorageError) WithMessage(msg string) *StorageError {
	se.baseError.WithMessage(msg)
	return se
}

// WithCode sets the error code while keeping the StorageError type.
func (se *StorageError) WithCode(code ErrorCode) *StorageError {
	se.baseError.WithCode(code)
	return se
}

// WithDetail adds contextual information while keeping the StorageError type.
func (se *StorageError) WithDetail(key string, value any) *StorageError {
	se.baseError.WithDetail(key, value)
	return se
}

// WithSegment records which segment was involved in the error.
func (se *StorageError) WithSegment(segment string) *StorageError {
	se.segment = segment
	return se
}

// WithOffset records the byte position where the error occurred.
func (se *StorageError) WithOffset(offset int64) *StorageError {
	se.offset = offset
	return se
}

// WithFileName captures the base name of the file being processed.
func (se *StorageError) WithFileName(fileName string) *StorageError {
	se.fileName = fileName
	return se
}

// WithPath captures the full path of the file being processed.
func (se *StorageError) WithPath(path string) *StorageError {
	se.path = path
	return se
}

// Segment returns the segment identifier involved in the error.
func (se *StorageError) Segment() string {
	return se.segment
}

// Offset returns the byte offset within the file where the error happened.
func (se *StorageError) Offset() int64 {
	return se.offset
}

// FileName returns the base name of the file that was being processed.
func (se *StorageError) FileName() string {
	return se.fileName
}

// Path returns the full path of the file that was being processed.
func (se *StorageError) Path() string {
	return se.path
}
