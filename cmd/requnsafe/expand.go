package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toyz/requnsafe/internal/cli"
)

type expandOptions struct {
	stdout         bool
	watch          bool
	noCache        bool
	salt           string
	argPrefix      string
	suffix         string
	jobs           int
	recursionLimit int
}

func newExpandCmd(global *globalOptions) *cobra.Command {
	opts := &expandOptions{}

	cmd := &cobra.Command{
		Use:   "expand <paths...>",
		Short: "Expand attributes and write <file>.expanded.rs next to each source",
		Example: `  requnsafe expand ./...                 # every source below the current directory
  requnsafe expand src/lib.rs --stdout   # print the expansion
  requnsafe expand ./src/... --watch     # re-expand on change
  requnsafe expand --salt v2 ./...       # salt generated names`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(args)
			if err != nil {
				global.reporter(cmd).ReportError(err)
				return err
			}
			opts.apply(cmd, &cfg)
			return runExpand(cmd, global, cfg, opts.watch)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.stdout, "stdout", false, "write expansions to standard output instead of files")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "keep running and re-expand files when they change")
	flags.BoolVar(&opts.noCache, "no-cache", false, "do not read or write the expansion cache")
	addNamingFlags(cmd, &opts.salt, &opts.argPrefix)
	flags.StringVar(&opts.suffix, "suffix", cli.DefaultOutputSuffix, "suffix replacing .rs in output file names")
	flags.IntVarP(&opts.jobs, "jobs", "j", 0, "files expanded in parallel (0 = number of CPUs)")
	flags.IntVar(&opts.recursionLimit, "recursion-limit", cli.DefaultRecursionLimit, "maximum rescans of expanded output")
	return cmd
}

func addNamingFlags(cmd *cobra.Command, salt, argPrefix *string) {
	cmd.Flags().StringVar(salt, "salt", "", "salt mixed into generated helper names")
	cmd.Flags().StringVar(argPrefix, "arg-prefix", "arg_", "prefix of renamed parameters")
}

// apply overrides cfg with every flag given on the command line.
func (o *expandOptions) apply(cmd *cobra.Command, cfg *cli.Config) {
	flags := cmd.Flags()
	cfg.Stdout = o.stdout
	cfg.NoCache = o.noCache
	if flags.Changed("salt") {
		cfg.Naming.Salt = o.salt
	}
	if flags.Changed("arg-prefix") {
		cfg.Naming.ArgPrefix = o.argPrefix
	}
	if flags.Changed("suffix") {
		cfg.Expand.OutputSuffix = o.suffix
	}
	if flags.Changed("jobs") {
		cfg.Expand.Jobs = o.jobs
	}
	if flags.Changed("recursion-limit") {
		cfg.Expand.RecursionLimit = o.recursionLimit
	}
}

func runExpand(cmd *cobra.Command, global *globalOptions, cfg cli.Config, watch bool) error {
	diagnostics := global.diagnostics(cmd)
	if cfg.Stdout {
		diagnostics = global.diagnosticsTo(cmd, cmd.ErrOrStderr())
	}
	reporter := global.reporter(cmd)

	if err := cfg.Validate(Version); err != nil {
		reporter.ReportError(err)
		return err
	}
	if cfg.Source != "" {
		diagnostics.Verbose("Using configuration %s", cfg.Source)
	}

	var cache *cli.DiskCache
	if !cfg.NoCache {
		cache = openCache(diagnostics)
	}

	processor := cli.NewProcessor(cfg, cache, reporter, diagnostics)
	processor.SetStdout(cmd.OutOrStdout())

	if watch {
		ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return cli.NewWatcher(processor).Watch(ctx)
	}

	diagnostics.StartProgress("Expanding")
	err := processor.Run(contextOf(cmd))
	summary := processor.Summary()

	if err != nil {
		diagnostics.Error("%d of %d file(s) failed to expand", summary.FilesFailed, summary.FilesScanned)
		return err
	}
	diagnostics.EndProgress("Expanding")

	if !cfg.Stdout && !global.quiet {
		reporter.ReportSuccess(summary, cmd.ErrOrStderr())
	}
	if global.verbose {
		diagnostics.Summary("Statistics", summary.Stats())
	}
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
