// Package filesys provides small wrappers over common filesystem operations
// used by the database lifecycle: directory creation, existence checks, and
// directory listing. Keeping them here gives the engine one place for
// consistent error behavior around the handful of os calls it makes.
package filesys

import (
	"errors"
	"os"
)

var (
	ErrIsNotDir = errors.New("path isn't a directory")
)

// CreateDir creates a directory at the specified path with the given
// permissions.
//
// If the directory already exists:
//   - If 'force' is true, it proceeds without error.
//   - If 'force' is false, it returns an error.
//
// It also returns an error if the existing path is a file (not a directory).
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	stat, err := os.Stat(dirPath)
	if !force && !os.IsNotExist(err) {
		if err == nil {
			return os.ErrExist
		}
		return err
	}

	// If the path exists and it's not a directory, return an error.
	if stat != nil && !stat.IsDir() {
		return ErrIsNotDir
	}

	if err := os.MkdirAll(dirPath, permission); err != nil {
		return err
	}

	// MkdirAll applies the umask; chmod to get the exact requested mode.
	return os.Chmod(dirPath, permission)
}

// Exists checks if a file or directory at the given path exists.
// It returns true if it exists, false if it does not, and an error for any
// other problem checking its status.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ReadDirNames returns the base names of all entries in the directory.
func ReadDirNames(dirPath string) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// DeleteFile deletes the file at the specified path.
func DeleteFile(filePath string) error {
	return os.Remove(filePath)
}
