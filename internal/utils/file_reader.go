package utils

import (
	"os"
	"path/filepath"

	"github.com/toyz/requnsafe/internal/errors"
	"github.com/toyz/requnsafe/internal/syntax"
)

// FileReader reads and lexes source files. Both the raw text and the token
// trees are cached and revalidated against the file's stamp on every read.
type FileReader struct {
	sourceCache  *Cache[string, *syntax.Source]
	contentCache *Cache[string, string]
}

// NewFileReader creates a new FileReader instance with caching
func NewFileReader() *FileReader {
	return &FileReader{
		sourceCache:  NewCache[string, *syntax.Source](),
		contentCache: NewCache[string, string](),
	}
}

// ReadFile returns the contents of filePath.
func (fr *FileReader) ReadFile(filePath string) (string, error) {
	cleanPath, err := fr.validateAndCleanPath(filePath)
	if err != nil {
		return "", err
	}

	if cached, ok := fr.contentCache.GetFresh(cleanPath, cleanPath); ok {
		return cached, nil
	}

	content, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", errors.WrapFileSystemError("read", cleanPath, err)
	}

	text := string(content)
	_ = fr.contentCache.SetFresh(cleanPath, text, cleanPath)
	return text, nil
}

// ReadSource returns the token trees of the Rust file at filePath.
func (fr *FileReader) ReadSource(filePath string) (*syntax.Source, error) {
	cleanPath, err := fr.validateAndCleanPath(filePath)
	if err != nil {
		return nil, err
	}

	if cached, ok := fr.sourceCache.GetFresh(cleanPath, cleanPath); ok {
		return cached, nil
	}

	content, err := fr.ReadFile(cleanPath)
	if err != nil {
		return nil, err
	}
	source, err := syntax.Parse(cleanPath, content)
	if err != nil {
		return nil, err
	}

	_ = fr.sourceCache.SetFresh(cleanPath, source, cleanPath)
	return source, nil
}

// InvalidateFile removes a specific file from the cache
func (fr *FileReader) InvalidateFile(filePath string) {
	cleanPath := filepath.Clean(filePath)
	fr.sourceCache.Delete(cleanPath)
	fr.contentCache.Delete(cleanPath)
}

// ClearCache clears all cached files
func (fr *FileReader) ClearCache() {
	fr.sourceCache.Clear()
	fr.contentCache.Clear()
}

// CacheStats returns statistics for the source and content caches.
func (fr *FileReader) CacheStats() (sources, contents CacheStats) {
	return fr.sourceCache.Stats(), fr.contentCache.Stats()
}

func (fr *FileReader) validateAndCleanPath(filePath string) (string, error) {
	if err := NotEmpty("filePath")(filePath); err != nil {
		return "", err
	}

	cleanPath := filepath.Clean(filePath)
	if _, err := os.Stat(cleanPath); err != nil {
		return "", errors.WrapFileSystemError("stat", cleanPath, err)
	}
	return cleanPath, nil
}
