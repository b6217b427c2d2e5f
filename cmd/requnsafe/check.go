package main

import (
	"github.com/spf13/cobra"
)

func newCheckCmd(global *globalOptions) *cobra.Command {
	var salt, argPrefix string
	var jobs int

	cmd := &cobra.Command{
		Use:   "check <paths...>",
		Short: "Report expansion errors without writing any output",
		Long: `check expands every source in memory and reports each attribute that
fails to expand. It exits with a non-zero status when any file fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(args)
			if err != nil {
				global.reporter(cmd).ReportError(err)
				return err
			}
			cfg.Check = true
			if cmd.Flags().Changed("salt") {
				cfg.Naming.Salt = salt
			}
			if cmd.Flags().Changed("arg-prefix") {
				cfg.Naming.ArgPrefix = argPrefix
			}
			if cmd.Flags().Changed("jobs") {
				cfg.Expand.Jobs = jobs
			}
			return runExpand(cmd, global, cfg, false)
		},
	}

	addNamingFlags(cmd, &salt, &argPrefix)
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "files checked in parallel (0 = number of CPUs)")
	return cmd
}
