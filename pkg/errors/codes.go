package errors

// ErrorCode categorizes a failure so callers can react programmatically
// instead of parsing error strings.
type ErrorCode string

// Base error codes cover the fundamental failure categories of the store.
// Every error surfaced at an operation boundary carries one of these, or one
// of the more specific codes below which refine them.
const (
	// ErrorCodeIO represents failures crossing the filesystem boundary:
	// open, read, write, rename, remove, seek and sync operations on
	// database files, as well as short reads from the compression codec.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeSchema represents an unreadable or ill-formed schema sidecar,
	// or configuration that contradicts the persisted schema.
	ErrorCodeSchema ErrorCode = "SCHEMA_ERROR"

	// ErrorCodeData represents malformed or unexpected on-disk content:
	// unknown tags, truncated frames, or values that contradict the
	// container's own index.
	ErrorCodeData ErrorCode = "DATA_ERROR"

	// ErrorCodeInvalidInput represents caller mistakes: nil configs, rows of
	// the wrong width, block numbers out of range.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrorCodeInternal represents conditions that indicate a bug in the
	// engine itself rather than in its inputs or environment.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Storage-specific codes refine ErrorCodeIO with failure modes that have a
// distinct resolution path.
const (
	// ErrorCodeSegmentCorrupted indicates a segment file whose framing or
	// trailer is damaged and cannot be decoded.
	ErrorCodeSegmentCorrupted ErrorCode = "SEGMENT_CORRUPTED"

	// ErrorCodePermissionDenied indicates insufficient permissions on the
	// database directory or one of its files.
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrorCodeDiskFull indicates the storage device is out of space.
	ErrorCodeDiskFull ErrorCode = "DISK_FULL"

	// ErrorCodeFilesystemReadonly indicates the filesystem is mounted
	// read-only and no mutation can succeed until it is remounted.
	ErrorCodeFilesystemReadonly ErrorCode = "FILESYSTEM_READONLY"

	// ErrorCodeDatabaseLocked indicates another process holds the database
	// directory lock.
	ErrorCodeDatabaseLocked ErrorCode = "DATABASE_LOCKED"
)

// Data-specific codes refine ErrorCodeData for the tag-framed container
// format.
const (
	// ErrorCodeBadTag indicates that bytes read at a tag position did not
	// form a recognized tag.
	ErrorCodeBadTag ErrorCode = "BAD_TAG"

	// ErrorCodeMissingTagPrefix indicates that after decoding a compressed
	// frame the reader could not realign on the tag prefix within the
	// permitted one-byte skip.
	ErrorCodeMissingTagPrefix ErrorCode = "MISSING_TAG_PREFIX"

	// ErrorCodeUnexpectedEOF indicates a frame or trailer ended before all
	// required bytes were present.
	ErrorCodeUnexpectedEOF ErrorCode = "UNEXPECTED_EOF"
)
