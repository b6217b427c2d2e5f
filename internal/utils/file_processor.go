package utils

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/toyz/requnsafe/internal/errors"
)

// FileFilter decides whether a file is collected.
type FileFilter func(path string, entry fs.DirEntry) bool

// DirectoryFilter decides whether a directory is descended into.
type DirectoryFilter func(path string, entry fs.DirEntry) bool

// FileWalkOptions configures file walking behavior
type FileWalkOptions struct {
	FileFilter      FileFilter
	DirectoryFilter DirectoryFilter
	Recursive       bool
	SkipErrors      bool
}

// RustSourceFilter accepts `.rs` files that are not expansion outputs.
func RustSourceFilter(outputSuffix string) FileFilter {
	return func(path string, entry fs.DirEntry) bool {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".rs") {
			return false
		}
		return outputSuffix == "" || !strings.HasSuffix(name, outputSuffix)
	}
}

// OutputFilter accepts files produced by a previous expansion.
func OutputFilter(outputSuffix string) FileFilter {
	return func(path string, entry fs.DirEntry) bool {
		return !entry.IsDir() && strings.HasSuffix(entry.Name(), outputSuffix)
	}
}

// DefaultDirectoryFilter skips build output, VCS metadata and hidden
// directories.
func DefaultDirectoryFilter() DirectoryFilter {
	skipDirs := map[string]bool{
		"target":       true,
		"node_modules": true,
		"vendor":       true,
	}

	return func(path string, entry fs.DirEntry) bool {
		name := entry.Name()
		if strings.HasPrefix(name, ".") && name != "." && name != ".." {
			return false
		}
		return !skipDirs[name]
	}
}

// WalkFiles collects the files under root that pass the filters, in
// lexical order. root itself is always entered; when Recursive is false
// subdirectories are not.
func WalkFiles(root string, options FileWalkOptions) ([]string, error) {
	var matched []string

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if options.SkipErrors {
				return nil
			}
			return errors.WrapFileSystemError("walk", path, err)
		}

		if entry.IsDir() {
			if path == root {
				return nil
			}
			if !options.Recursive {
				return filepath.SkipDir
			}
			if options.DirectoryFilter != nil && !options.DirectoryFilter(path, entry) {
				return filepath.SkipDir
			}
			return nil
		}

		if options.FileFilter == nil || options.FileFilter(path, entry) {
			matched = append(matched, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matched)
	return matched, nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
