package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/toyz/requnsafe/internal/errors"
	"github.com/toyz/requnsafe/internal/rewrite"
	"github.com/toyz/requnsafe/internal/utils"
)

// Config file names, in lookup order.
var ConfigFileNames = []string{".requnsafe.toml", ".requnsafe.yaml", ".requnsafe.yml"}

const (
	DefaultRecursionLimit = 128
	DefaultOutputSuffix   = ".expanded.rs"
)

// NamingConfig controls generated identifiers.
type NamingConfig struct {
	ArgPrefix string `toml:"arg_prefix" yaml:"arg_prefix"`
	Salt      string `toml:"salt" yaml:"salt"`
}

// ExpandConfig controls how files are expanded and written.
type ExpandConfig struct {
	RecursionLimit int    `toml:"recursion_limit" yaml:"recursion_limit"`
	OutputSuffix   string `toml:"output_suffix" yaml:"output_suffix"`
	Jobs           int    `toml:"jobs" yaml:"jobs"`
}

// Config holds the configuration for the expander CLI
type Config struct {
	// Requires is a semantic version constraint the running tool must satisfy
	Requires string       `toml:"requires" yaml:"requires"`
	Naming   NamingConfig `toml:"naming" yaml:"naming"`
	Expand   ExpandConfig `toml:"expand" yaml:"expand"`

	// Paths are the files, directories or `dir/...` patterns to process
	Paths []string `toml:"-" yaml:"-"`

	// Stdout writes expansions to standard output instead of files
	Stdout bool `toml:"-" yaml:"-"`

	// Check expands in memory without writing anything
	Check bool `toml:"-" yaml:"-"`

	// NoCache disables the on-disk expansion cache
	NoCache bool `toml:"-" yaml:"-"`

	// Verbose enables detailed logging and error reporting
	Verbose bool `toml:"-" yaml:"-"`

	// Source is the file the configuration was loaded from, if any
	Source string `toml:"-" yaml:"-"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() Config {
	return Config{
		Naming: NamingConfig{ArgPrefix: rewrite.DefaultArgPrefix},
		Expand: ExpandConfig{
			RecursionLimit: DefaultRecursionLimit,
			OutputSuffix:   DefaultOutputSuffix,
		},
	}
}

// Namer returns the naming scheme described by the configuration.
func (c Config) Namer() rewrite.Namer {
	return rewrite.Namer{ArgPrefix: c.Naming.ArgPrefix, Salt: c.Naming.Salt}
}

// Jobs returns the effective concurrency limit.
func (c Config) Jobs() int {
	if c.Expand.Jobs > 0 {
		return c.Expand.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

// Validate checks every field and the version constraint against version.
func (c Config) Validate(version string) error {
	if err := c.Namer().Validate(); err != nil {
		return err
	}

	limit := utils.InRange("expand.recursion_limit", 1, 4096)
	if err := limit(c.Expand.RecursionLimit); err != nil {
		return c.configError(err)
	}

	jobs := utils.InRange("expand.jobs", 0, 1024)
	if err := jobs(c.Expand.Jobs); err != nil {
		return c.configError(err)
	}

	suffix := utils.NewValidatorChain(
		utils.NotEmpty("expand.output_suffix"),
		utils.HasSuffix("expand.output_suffix", ".rs"),
		utils.MatchesRegex("expand.output_suffix", `^[.\-_A-Za-z0-9]+$`, "must be a file name suffix"),
	)
	if err := suffix.Validate(c.Expand.OutputSuffix); err != nil {
		return c.configError(err)
	}
	if c.Expand.OutputSuffix == ".rs" {
		return c.configError(utils.ValidationError{
			Field:   "expand.output_suffix",
			Value:   c.Expand.OutputSuffix,
			Message: "must differ from the source extension",
		})
	}

	return c.checkRequires(version)
}

func (c Config) checkRequires(version string) error {
	if c.Requires == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(c.Requires)
	if err != nil {
		return c.configError(err).WithContext("requires", c.Requires)
	}
	current, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrap(errors.ConfigurationErrorCode, fmt.Sprintf("invalid tool version %q", version), err)
	}
	if !constraint.Check(current) {
		return errors.Newf(errors.ConfigurationErrorCode, "requnsafe %s does not satisfy requires = %q", version, c.Requires).
			WithContext("config_file", c.Source).
			WithSuggestion("install a requnsafe release matching the constraint, or relax `requires`")
	}
	return nil
}

func (c Config) configError(err error) *errors.BaseError {
	source := c.Source
	if source == "" {
		source = "<flags>"
	}
	return errors.Newf(errors.ConfigurationErrorCode, "invalid configuration %s: %v", source, err).
		WithCause(err).
		WithContext("config_file", source)
}

// LoadConfig reads a configuration file. The format follows the extension;
// unset keys keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.WrapConfigurationError(path, "read", err)
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, errors.WrapConfigurationError(path, "parse", err)
		}
	default:
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, errors.WrapConfigurationError(path, "parse", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return cfg, errors.Newf(errors.ConfigurationErrorCode, "unknown configuration key `%s`", undecoded[0].String()).
				WithContext("config_file", path)
		}
	}

	cfg.Source = path
	return cfg, nil
}

// FindConfig searches for a configuration file starting from dir and
// walking up. The search stops at the enclosing crate root, the directory
// holding Cargo.toml. It returns "" when nothing is found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.WrapFileSystemError("resolve", dir, err)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}

		if _, err := os.Stat(filepath.Join(dir, utils.CargoManifestName)); err == nil {
			return "", nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// ResolveConfig loads explicit when set, otherwise the file discovered from
// dir, otherwise the defaults.
func ResolveConfig(explicit, dir string) (Config, error) {
	path := explicit
	if path == "" {
		found, err := FindConfig(dir)
		if err != nil {
			return DefaultConfig(), err
		}
		path = found
	}
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// ConfigDirFor returns the directory configuration discovery starts from
// for the given path arguments: the first argument's directory, or the
// working directory when there are none.
func ConfigDirFor(paths []string) string {
	if len(paths) == 0 {
		return "."
	}
	root, _ := splitPattern(paths[0])
	if utils.IsDir(root) {
		return root
	}
	return filepath.Dir(root)
}
