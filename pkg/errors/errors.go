// Package errors provides the structured error types used throughout the
// lattice storage engine.
//
// The engine reports failures at operation boundaries in three broad kinds:
// storage errors (the filesystem or codec failed), data errors (bytes on disk
// do not match the container format), and validation errors (the schema or
// the caller's input is ill-formed). Each kind is a distinct type embedding a
// shared baseError, so callers can branch with errors.As while structured
// details and stable codes flow into logs unchanged.
//
// Errors are built with a fluent interface at the point of failure:
//
//	return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to rename segment").
//		WithPath(path).
//		WithSegment(id.String())
//
// The Classify* helpers inspect the underlying syscall error to upgrade a
// generic I/O failure into a more actionable code (disk full, read-only
// filesystem, permission denied) before it leaves the engine.
package errors

import (
	stdErrors "errors"
	"os"
	"syscall"
)

// IsStorageError reports whether err is, or wraps, a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return stdErrors.As(err, &se)
}

// IsDataError reports whether err is, or wraps, a DataError.
func IsDataError(err error) bool {
	var de *DataError
	return stdErrors.As(err, &de)
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return stdErrors.As(err, &ve)
}

// AsStorageError extracts a StorageError from an error chain, giving access
// to the file coordinates (segment, path, offset) captured at the failure.
func AsStorageError(err error) (*StorageError, bool) {
	var se *StorageError
	if stdErrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsDataError extracts a DataError from an error chain.
func AsDataError(err error) (*DataError, bool) {
	var de *DataError
	if stdErrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// AsValidationError extracts a ValidationError from an error chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stdErrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// GetErrorCode extracts the code from any lattice error, or returns
// ErrorCodeInternal for errors that don't carry one.
func GetErrorCode(err error) ErrorCode {
	if se, ok := AsStorageError(err); ok {
		return se.Code()
	}
	if de, ok := AsDataError(err); ok {
		return de.Code()
	}
	if ve, ok := AsValidationError(err); ok {
		return ve.Code()
	}
	return ErrorCodeInternal
}

// GetErrorDetails extracts the structured details from any lattice error,
// returning an empty map for errors without them.
func GetErrorDetails(err error) map[string]any {
	if se, ok := AsStorageError(err); ok {
		if details := se.Details(); details != nil {
			return details
		}
	}
	if de, ok := AsDataError(err); ok {
		if details := de.Details(); details != nil {
			return details
		}
	}
	if ve, ok := AsValidationError(err); ok {
		if details := ve.Details(); details != nil {
			return details
		}
	}
	return make(map[string]any)
}

// ClassifyDirectoryCreationError upgrades a directory-creation failure to a
// specific code based on the underlying system error.
func ClassifyDirectoryCreationError(err error, path string) error {
	if os.IsPermission(err) {
		return NewStorageError(
			err, ErrorCodePermissionDenied,
			"Insufficient permissions to create database directory",
		).WithPath(path).WithDetail("operation", "directory_creation")
	}

	if errno, ok := extractErrno(err); ok {
		switch errno {
		case syscall.ENOSPC:
			return NewStorageError(
				err, ErrorCodeDiskFull,
				"Insufficient disk space to create database directory",
			).WithPath(path).WithDetail("operation", "directory_creation")
		case syscall.EROFS:
			return NewStorageError(
				err, ErrorCodeFilesystemReadonly,
				"Cannot create directory on read-only filesystem",
			).WithPath(path).WithDetail("operation", "directory_creation")
		}
	}

	return NewStorageError(
		err, ErrorCodeIO, "Failed to create database directory",
	).WithPath(path).WithDetail("operation", "directory_creation")
}

// ClassifyFileOpenError upgrades a file-open failure to a specific code based
// on the underlying system error.
func ClassifyFileOpenError(err error, filePath, fileName string) error {
	if os.IsPermission(err) {
		return NewStorageError(
			err, ErrorCodePermissionDenied,
			"Insufficient permissions to open segment file",
		).WithPath(filePath).
			WithFileName(fileName).
			WithDetail("operation", "file_open")
	}

	if errno, ok := extractErrno(err); ok {
		switch errno {
		case syscall.ENOSPC:
			return NewStorageError(
				err, ErrorCodeDiskFull,
				"Insufficient disk space to create segment file",
			).WithPath(filePath).
				WithFileName(fileName).
				WithDetail("operation", "file_open")
		case syscall.EROFS:
			return NewStorageError(
				err, ErrorCodeFilesystemReadonly,
				"Cannot create file on read-only filesystem",
			).WithPath(filePath).
				WithFileName(fileName).
				WithDetail("operation", "file_open")
		}
	}

	return NewStorageError(err, ErrorCodeIO, "Failed to open segment file").
		WithPath(filePath).
		WithFileName(fileName).
		WithDetail("operation", "file_open")
}

// ClassifyWriteError upgrades a write or sync failure to a specific code
// based on the underlying system error.
func ClassifyWriteError(err error, filePath string, offset int64) error {
	if errno, ok := extractErrno(err); ok {
		switch errno {
		case syscall.ENOSPC:
			return NewStorageError(
				err, ErrorCodeDiskFull,
				"Cannot write segment file: insufficient disk space",
			).WithPath(filePath).WithOffset(offset).WithDetail("operation", "file_write")
		case syscall.EROFS:
			return NewStorageError(
				err, ErrorCodeFilesystemReadonly,
				"Cannot write segment file: filesystem is read-only",
			).WithPath(filePath).WithOffset(offset).WithDetail("operation", "file_write")
		case syscall.EIO:
			return NewStorageError(
				err, ErrorCodeIO,
				"I/O error writing segment file - possible hardware issue",
			).WithPath(filePath).WithOffset(offset).
				WithDetail("operation", "file_write").
				WithDetail("severity", "high")
		}
	}

	return NewStorageError(
		err, ErrorCodeIO, "Failed to write segment file",
	).WithPath(filePath).WithOffset(offset).WithDetail("operation", "file_write")
}

// extractErrno digs the syscall.Errno out of an *os.PathError or
// *os.LinkError chain, if there is one.
func extractErrno(err error) (syscall.Errno, bool) {
	var errno syscall.Errno
	if stdErrors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}
