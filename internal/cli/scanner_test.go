package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/requnsafe/internal/errors"
)

func writeFile(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func createCrate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[package]\nname = \"ptrs\"\nversion = \"0.1.0\"\n")
	writeFile(t, root, "src/lib.rs", "pub mod raw;\n")
	writeFile(t, root, "src/raw.rs", "")
	writeFile(t, root, "src/raw.expanded.rs", "")
	writeFile(t, root, "src/ffi/mod.rs", "")
	writeFile(t, root, "target/debug/out.rs", "")
	writeFile(t, root, "README.md", "")
	return root
}

func TestDirectoryScanner_ScanPaths(t *testing.T) {
	root := createCrate(t)
	scanner := NewDirectoryScanner(DefaultOutputSuffix)

	tests := []struct {
		name     string
		paths    []string
		expected []string
	}{
		{
			name:     "single directory",
			paths:    []string{filepath.Join(root, "src")},
			expected: []string{"src/lib.rs", "src/raw.rs"},
		},
		{
			name:     "recursive pattern",
			paths:    []string{root + "/..."},
			expected: []string{"src/ffi/mod.rs", "src/lib.rs", "src/raw.rs"},
		},
		{
			name:     "explicit file",
			paths:    []string{filepath.Join(root, "src", "ffi", "mod.rs")},
			expected: []string{"src/ffi/mod.rs"},
		},
		{
			name:     "duplicates collapse",
			paths:    []string{filepath.Join(root, "src"), filepath.Join(root, "src", "lib.rs")},
			expected: []string{"src/lib.rs", "src/raw.rs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := scanner.ScanPaths(tt.paths)
			require.NoError(t, err)

			var rel []string
			for _, file := range files {
				r, err := filepath.Rel(root, file)
				require.NoError(t, err)
				rel = append(rel, filepath.ToSlash(r))
			}
			assert.Equal(t, tt.expected, rel)
		})
	}
}

func TestDirectoryScanner_ScanOutputs(t *testing.T) {
	root := createCrate(t)

	files, err := NewDirectoryScanner(DefaultOutputSuffix).ScanOutputs([]string{root + "/..."})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(root, "src", "raw.expanded.rs"), files[0])
}

func TestDirectoryScanner_Errors(t *testing.T) {
	root := createCrate(t)
	scanner := NewDirectoryScanner(DefaultOutputSuffix)

	_, err := scanner.ScanPaths([]string{filepath.Join(root, "missing")})
	require.Error(t, err)
	assert.Equal(t, errors.FileSystemErrorCode, errors.CodeOf(err))

	_, err = scanner.ScanPaths([]string{filepath.Join(root, "src", "lib.rs") + "/..."})
	require.Error(t, err)
	assert.Equal(t, errors.UsageErrorCode, errors.CodeOf(err))
}

func TestSplitPattern(t *testing.T) {
	tests := []struct {
		arg       string
		root      string
		recursive bool
	}{
		{"./...", ".", true},
		{"...", ".", true},
		{"src/...", "src", true},
		{"/...", ".", true},
		{"src", "src", false},
		{"src/lib.rs", "src/lib.rs", false},
	}
	for _, tt := range tests {
		root, recursive := splitPattern(tt.arg)
		assert.Equal(t, tt.root, root, tt.arg)
		assert.Equal(t, tt.recursive, recursive, tt.arg)
	}
}
