package main

import (
	"context"

	"github.com/danmuck/rolectl/internal/manager"
	"github.com/danmuck/rolectl/internal/ui"
	"github.com/spf13/cobra"
)

type mutation func(m *manager.Manager, ctx context.Context, roles []string) (manager.Report, error)

func addCmd(opts *globalOptions) *cobra.Command {
	return mutateCmd(opts, (*manager.Manager).Add, &cobra.Command{
		Use:   "add <role>...",
		Short: "Add roles and install every tool the role set needs",
	})
}

func removeCmd(opts *globalOptions) *cobra.Command {
	return mutateCmd(opts, (*manager.Manager).Remove, &cobra.Command{
		Use:     "remove <role>...",
		Aliases: []string{"rm"},
		Short:   "Remove roles and uninstall tools no remaining role needs",
	})
}

func updateCmd(opts *globalOptions) *cobra.Command {
	return mutateCmd(opts, (*manager.Manager).Update, &cobra.Command{
		Use:   "update <role>...",
		Short: "Make the given roles the exact configured set",
		Long: "update installs the tools of the given roles, then removes every\n" +
			"configured role not named and uninstalls its orphaned tools.",
	})
}

// mutateCmd fills in the flags and RunE shared by add, remove and update.
// Per-tool failures are reported but do not fail the command.
func mutateCmd(opts *globalOptions, apply mutation, cmd *cobra.Command) *cobra.Command {
	var (
		dryRun bool
		output string
	)
	cmd.Args = cobra.MinimumNArgs(1)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		format, err := ui.ParseFormat(output)
		if err != nil {
			return err
		}
		if _, err := manager.ValidateRoles(args); err != nil {
			return err
		}
		cfg, err := loadConfig(opts)
		if err != nil {
			return err
		}
		m, closeFn, err := openManager(cfg, managerOptions{dryRun: dryRun, journal: !dryRun})
		if err != nil {
			return err
		}
		defer closeFn()

		report, runErr := apply(m, cmd.Context(), args)
		out := cmd.OutOrStdout()
		if format == ui.FormatText {
			ui.RenderReport(out, report)
		} else if err := ui.Encode(out, format, report); err != nil {
			return err
		}
		return runErr
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan only: run no package manager and save nothing")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}
