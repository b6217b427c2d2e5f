package cli

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/toyz/requnsafe/internal/errors"
	"github.com/toyz/requnsafe/internal/utils"
)

// DirectoryScanner resolves path arguments to Rust source files
type DirectoryScanner struct {
	outputSuffix string
}

// NewDirectoryScanner creates a scanner that ignores files ending in
// outputSuffix.
func NewDirectoryScanner(outputSuffix string) *DirectoryScanner {
	return &DirectoryScanner{outputSuffix: outputSuffix}
}

// ScanPaths returns the Rust sources named by paths, deduplicated and in
// lexical order. A file is taken as is, a directory contributes its direct
// children and `dir/...` every source below dir.
func (s *DirectoryScanner) ScanPaths(paths []string) ([]string, error) {
	return s.scan(paths, utils.RustSourceFilter(s.outputSuffix))
}

// ScanOutputs returns previously generated expansion files below paths.
func (s *DirectoryScanner) ScanOutputs(paths []string) ([]string, error) {
	return s.scan(paths, utils.OutputFilter(s.outputSuffix))
}

func (s *DirectoryScanner) scan(paths []string, filter utils.FileFilter) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range paths {
		root, recursive := splitPattern(arg)

		cleanPath, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.WrapFileSystemError("resolve", root, err)
		}

		info, err := os.Stat(cleanPath)
		if err != nil {
			return nil, errors.WrapFileSystemError("stat", cleanPath, err).
				WithSuggestion("check that the path exists and is readable")
		}

		if !info.IsDir() {
			if recursive {
				return nil, errors.Newf(errors.UsageErrorCode, "`%s` is a file; `/...` only applies to directories", root)
			}
			add(cleanPath)
			continue
		}

		found, err := utils.WalkFiles(cleanPath, utils.FileWalkOptions{
			FileFilter:      filter,
			DirectoryFilter: utils.DefaultDirectoryFilter(),
			Recursive:       recursive,
		})
		if err != nil {
			return nil, err
		}
		for _, file := range found {
			add(file)
		}
	}

	sort.Strings(files)
	return files, nil
}

// splitPattern separates the `/...` recursion marker from a path.
func splitPattern(arg string) (string, bool) {
	for _, marker := range []string{"/...", string(filepath.Separator) + "..."} {
		if strings.HasSuffix(arg, marker) {
			root := strings.TrimSuffix(arg, marker)
			if root == "" {
				root = "."
			}
			return root, true
		}
	}
	if arg == "..." {
		return ".", true
	}
	return arg, false
}
