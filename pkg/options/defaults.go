package options

import "os"

const (
	// DefaultDirPermission is the mode applied to a freshly created
	// database directory (rwxr-xr-x).
	DefaultDirPermission os.FileMode = 0755

	// DefaultFilePermission is the mode applied to freshly created segment
	// and schema files (rw-r--r--).
	DefaultFilePermission os.FileMode = 0644

	// DefaultSegmentCacheEntries is the default capacity of the segment
	// handle cache.
	DefaultSegmentCacheEntries = 128

	// DefaultBlockCacheEntries is the default capacity of the decoded block
	// cache.
	DefaultBlockCacheEntries = 512

	// MinCompressionLevel is the lowest accepted compression level.
	MinCompressionLevel = 1

	// MaxCompressionLevel is the highest accepted compression level.
	MaxCompressionLevel = 9

	// DefaultCompressionLevel favors flush throughput over file size.
	DefaultCompressionLevel = 1
)

// Holds the default configuration settings for a database instance.
var defaultOptions = Options{
	DirPermission:       DefaultDirPermission,
	FilePermission:      DefaultFilePermission,
	SegmentCacheEntries: DefaultSegmentCacheEntries,
	BlockCacheEntries:   DefaultBlockCacheEntries,
	CompressionLevel:    DefaultCompressionLevel,
	SyncOnFlush:         true,
}

// NewDefaultOptions returns a copy of the default configuration.
func NewDefaultOptions() Options {
	return defaultOptions
}
