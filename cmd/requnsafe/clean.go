package main

import (
	"github.com/spf13/cobra"

	"github.com/toyz/requnsafe/internal/cli"
)

func newCleanCmd(global *globalOptions) *cobra.Command {
	var cacheOnly, withCache bool

	cmd := &cobra.Command{
		Use:   "clean [paths...]",
		Short: "Remove generated expansion files",
		Example: `  requnsafe clean ./...           # remove every *.expanded.rs below .
  requnsafe clean ./... --cache   # also drop the expansion cache
  requnsafe clean --cache-only    # only drop the expansion cache`,
		RunE: func(cmd *cobra.Command, args []string) error {
			diagnostics := global.diagnostics(cmd)
			reporter := global.reporter(cmd)

			if len(args) == 0 && !cacheOnly {
				args = []string{"./..."}
			}
			cfg, err := global.loadConfig(args)
			if err != nil {
				reporter.ReportError(err)
				return err
			}
			if err := cfg.Validate(Version); err != nil {
				reporter.ReportError(err)
				return err
			}

			var cache *cli.DiskCache
			if cacheOnly || withCache {
				cache = openCache(diagnostics)
			}
			cleaner := cli.NewCleaner(cfg.Expand.OutputSuffix, cache)

			if !cacheOnly {
				diagnostics.Section("Cleaning generated files")
				removed, err := cleaner.CleanGeneratedFiles(args)
				for _, path := range removed {
					diagnostics.List("%s", path)
				}
				if err != nil {
					reporter.ReportError(err)
					return err
				}
				if len(removed) == 0 {
					diagnostics.Info("No generated files found")
				} else {
					diagnostics.Success("Removed %d generated file(s)", len(removed))
				}
			}

			if cache != nil {
				n, err := cleaner.CleanCache()
				if err != nil {
					reporter.ReportError(err)
					return err
				}
				diagnostics.Success("Dropped %d cached expansion(s)", n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withCache, "cache", false, "also drop the expansion cache")
	cmd.Flags().BoolVar(&cacheOnly, "cache-only", false, "only drop the expansion cache")
	return cmd
}
