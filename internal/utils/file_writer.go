package utils

import (
	"os"
	"path/filepath"

	"github.com/toyz/requnsafe/internal/errors"
)

// WriteFileAtomic replaces path with content. The data is written to a
// temporary file in the same directory and renamed over path, so readers
// never observe a partially written file.
func WriteFileAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapFileSystemError("create directory for", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".requnsafe-*")
	if err != nil {
		return errors.WrapFileSystemError("create temporary file for", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return errors.WrapFileSystemError("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapFileSystemError("write", path, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return errors.WrapFileSystemError("chmod", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.WrapFileSystemError("replace", path, err)
	}
	return nil
}

// RemoveFile deletes path. A missing file is not an error.
func RemoveFile(path string) (bool, error) {
	err := os.Remove(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, errors.WrapFileSystemError("remove", path, err)
	}
}
