package utils

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/toyz/requnsafe/internal/errors"
)

// CargoManifestName is the file that marks a crate root.
const CargoManifestName = "Cargo.toml"

// CargoManifest holds the parts of Cargo.toml that reports use.
type CargoManifest struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
		Edition string `toml:"edition"`
	} `toml:"package"`
	Workspace *struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`

	// Dir is the directory containing the manifest.
	Dir string `toml:"-"`
}

// IsWorkspace reports whether the manifest declares a workspace without
// being a package itself.
func (m *CargoManifest) IsWorkspace() bool {
	return m.Workspace != nil && m.Package.Name == ""
}

// FindCargoManifest walks up from startDir looking for Cargo.toml and
// returns its path, or "" when there is none.
func FindCargoManifest(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.WrapFileSystemError("resolve", startDir, err)
	}

	for {
		candidate := filepath.Join(dir, CargoManifestName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// ParseCargoManifest reads and decodes the manifest at path.
func ParseCargoManifest(path string) (*CargoManifest, error) {
	var manifest CargoManifest
	if _, err := toml.DecodeFile(path, &manifest); err != nil {
		return nil, errors.WrapConfigurationError(path, "parse", err)
	}
	manifest.Dir = filepath.Dir(path)
	return &manifest, nil
}

// CrateLocator maps source files to the crate that owns them. Manifests
// are cached per directory.
type CrateLocator struct {
	manifests *Cache[string, *CargoManifest]
}

// NewCrateLocator creates an empty locator.
func NewCrateLocator() *CrateLocator {
	return &CrateLocator{manifests: NewCache[string, *CargoManifest]()}
}

// Locate returns the manifest of the crate containing path, or nil when
// path is not inside a crate.
func (l *CrateLocator) Locate(path string) (*CargoManifest, error) {
	dir := path
	if !IsDir(path) {
		dir = filepath.Dir(path)
	}

	if manifest, ok := l.manifests.Get(dir); ok {
		return manifest, nil
	}

	manifestPath, err := FindCargoManifest(dir)
	if err != nil || manifestPath == "" {
		return nil, err
	}
	manifest, err := ParseCargoManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	_ = l.manifests.SetFresh(dir, manifest, manifestPath)
	return manifest, nil
}

// CrateName returns the package name owning path, or "" when unknown.
func (l *CrateLocator) CrateName(path string) string {
	manifest, err := l.Locate(path)
	if err != nil || manifest == nil {
		return ""
	}
	return manifest.Package.Name
}
