package cli

import (
	"github.com/toyz/requnsafe/internal/errors"
	"github.com/toyz/requnsafe/internal/utils"
)

// Cleaner handles cleaning up generated files
type Cleaner struct {
	scanner *DirectoryScanner
	cache   *DiskCache
}

// NewCleaner creates a cleaner for outputs ending in outputSuffix. cache
// is dropped by CleanCache and may be nil.
func NewCleaner(outputSuffix string, cache *DiskCache) *Cleaner {
	return &Cleaner{
		scanner: NewDirectoryScanner(outputSuffix),
		cache:   cache,
	}
}

// CleanGeneratedFiles removes every expansion output below paths and
// returns the removed files.
func (c *Cleaner) CleanGeneratedFiles(paths []string) ([]string, error) {
	outputs, err := c.scanner.ScanOutputs(paths)
	if err != nil {
		return nil, err
	}

	var removed []string
	failures := errors.NewMultipleErrors()
	for _, output := range outputs {
		ok, err := utils.RemoveFile(output)
		if err != nil {
			failures.Add(err)
			continue
		}
		if ok {
			removed = append(removed, output)
		}
	}
	return removed, failures.ErrorOrNil()
}

// CleanCache drops every cached expansion and returns how many there were.
func (c *Cleaner) CleanCache() (int, error) {
	n := c.cache.Len()
	if err := c.cache.DropAll(); err != nil {
		return 0, err
	}
	return n, nil
}
