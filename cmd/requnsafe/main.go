package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/toyz/requnsafe/internal/cli"
	"github.com/toyz/requnsafe/internal/utils"
)

// Version is the tool version. It is part of every cache key and is what
// a configuration's `requires` constraint is checked against.
const Version = "0.4.0"

type globalOptions struct {
	verbose bool
	quiet   bool
	config  string
	color   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "requnsafe",
		Short: "Expand #[require_unsafe_in_body] and #[require_unsafe_in_bodies] in Rust sources",
		Long: `requnsafe rewrites unsafe functions so their bodies no longer run in an
implicit unsafe context. Every unsafe operation inside a decorated function
then needs its own unsafe block.

Paths may be files, directories, or patterns such as ./src/... that
search a directory recursively.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output and detailed error reporting")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "only show errors")
	flags.StringVar(&opts.config, "config", "", "configuration file (default: .requnsafe.toml or .requnsafe.yaml found from the first path)")
	flags.StringVar(&opts.color, "color", "auto", "colorize output (auto|always|never)")

	root.AddCommand(newExpandCmd(opts))
	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newCleanCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (o *globalOptions) level() utils.DiagnosticLevel {
	switch {
	case o.quiet:
		return utils.DiagnosticError
	case o.verbose:
		return utils.DiagnosticVerbose
	default:
		return utils.DiagnosticInfo
	}
}

func (o *globalOptions) colors(cmd *cobra.Command) bool {
	switch o.color {
	case "always":
		return true
	case "never":
		return false
	default:
		return utils.ShouldUseColors(cmd.ErrOrStderr())
	}
}

func (o *globalOptions) diagnostics(cmd *cobra.Command) *utils.DiagnosticSystem {
	return o.diagnosticsTo(cmd, cmd.OutOrStdout())
}

// diagnosticsTo logs informational output to out instead of stdout.
func (o *globalOptions) diagnosticsTo(cmd *cobra.Command, out io.Writer) *utils.DiagnosticSystem {
	d := utils.NewDiagnosticSystemWithWriters(o.level(), out, cmd.ErrOrStderr())
	d.SetColors(o.colors(cmd))
	return d
}

func (o *globalOptions) reporter(cmd *cobra.Command) *cli.DiagnosticReporter {
	return cli.NewDiagnosticReporterWithWriter(cmd.ErrOrStderr(), o.verbose, o.colors(cmd))
}

// loadConfig resolves the configuration for paths. Flag overrides are
// applied by the caller before validation.
func (o *globalOptions) loadConfig(paths []string) (cli.Config, error) {
	cfg, err := cli.ResolveConfig(o.config, cli.ConfigDirFor(paths))
	if err != nil {
		return cfg, err
	}
	cfg.Paths = paths
	cfg.Verbose = o.verbose
	return cfg, nil
}

// openCache opens the expansion cache, or returns nil with a warning when
// it is unavailable.
func openCache(d *utils.DiagnosticSystem) *cli.DiskCache {
	dir, err := cli.CacheDir("requnsafe")
	if err == nil {
		var cache *cli.DiskCache
		if cache, err = cli.OpenDiskCache(dir, Version); err == nil {
			d.Debug("Using cache at %s", dir)
			return cache
		}
	}
	d.Warn("Expansion cache disabled: %v", err)
	return nil
}
