package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/toyz/requnsafe/internal/errors"
	"github.com/toyz/requnsafe/internal/rewrite"
	"github.com/toyz/requnsafe/internal/utils"
)

// Current schema version - increment when CachedExpansion changes
const diskCacheSchemaVersion uint16 = 1

// CacheKey identifies an expansion: the SHA-256 of everything its output
// depends on.
type CacheKey [sha256.Size]byte

// CachedExpansion is the on-disk form of a successful expansion.
type CachedExpansion struct {
	Schema     uint16
	Version    string
	Output     string
	Expansions uint32
	Passes     uint32
	CreatedAt  int64
}

// DiskCache stores expansion results by content hash. It is safe for
// concurrent use; a nil *DiskCache is a cache that never hits.
type DiskCache struct {
	mu      sync.RWMutex
	dir     string
	version string
}

// CacheDir returns the default cache location for app.
func CacheDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// OpenDiskCache opens (creating if needed) the cache rooted at dir.
// Entries written by another tool version are ignored.
func OpenDiskCache(dir, version string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WrapFileSystemError("create cache directory for", dir, err)
	}
	return &DiskCache{dir: dir, version: version}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// KeyFor derives the cache key of a source text expanded with namer and
// recursionLimit.
func (c *DiskCache) KeyFor(src string, namer rewrite.Namer, recursionLimit int) CacheKey {
	h := sha256.New()
	for _, part := range []string{c.versionOrEmpty(), namer.ArgPrefix, namer.Salt} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	limit, _ := safecast.Conv[uint32](recursionLimit)
	h.Write([]byte{byte(limit >> 24), byte(limit >> 16), byte(limit >> 8), byte(limit)})
	h.Write([]byte(src))

	var key CacheKey
	copy(key[:], h.Sum(nil))
	return key
}

func (c *DiskCache) versionOrEmpty() string {
	if c == nil {
		return ""
	}
	return c.version
}

func (c *DiskCache) pathFor(key CacheKey) string {
	return filepath.Join(c.dir, "files", hex.EncodeToString(key[:])+".mp")
}

// Put stores a successful expansion.
func (c *DiskCache) Put(key CacheKey, exp *Expansion) error {
	if c == nil {
		return nil
	}

	expansions, err := safecast.Conv[uint32](exp.Expansions)
	if err != nil {
		return errors.Wrap(errors.UnknownErrorCode, "expansion count out of range", err)
	}
	passes, err := safecast.Conv[uint32](exp.Passes)
	if err != nil {
		return errors.Wrap(errors.UnknownErrorCode, "pass count out of range", err)
	}

	payload, err := msgpack.Marshal(&CachedExpansion{
		Schema:     diskCacheSchemaVersion,
		Version:    c.version,
		Output:     exp.Output,
		Expansions: expansions,
		Passes:     passes,
		CreatedAt:  time.Now().Unix(),
	})
	if err != nil {
		return errors.Wrap(errors.UnknownErrorCode, "failed to encode cache entry", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return utils.WriteFileAtomic(c.pathFor(key), payload, 0o644)
}

// Get returns the stored expansion for key. Unreadable entries and entries
// of another schema or tool version count as misses.
func (c *DiskCache) Get(key CacheKey) (*Expansion, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	data, err := os.ReadFile(c.pathFor(key))
	c.mu.RUnlock()
	if err != nil {
		return nil, false
	}

	var entry CachedExpansion
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if entry.Schema != diskCacheSchemaVersion || entry.Version != c.version {
		return nil, false
	}

	expansions, err := safecast.Conv[int](entry.Expansions)
	if err != nil {
		return nil, false
	}
	passes, err := safecast.Conv[int](entry.Passes)
	if err != nil {
		return nil, false
	}
	return &Expansion{Output: entry.Output, Expansions: expansions, Passes: passes}, true
}

// Len returns the number of stored entries.
func (c *DiskCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries, err := os.ReadDir(filepath.Join(c.dir, "files"))
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".mp" {
			n++
		}
	}
	return n
}

// DropAll removes every entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	files := filepath.Join(c.dir, "files")
	old := files + ".old-" + time.Now().Format("20060102150405.000000000")
	if err := os.Rename(files, old); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WrapFileSystemError("drop cache", files, err)
	}
	if err := os.RemoveAll(old); err != nil {
		return errors.WrapFileSystemError("drop cache", old, err)
	}
	return nil
}
