package main

import (
	"github.com/danmuck/rolectl/internal/logging"
	"github.com/danmuck/rolectl/internal/ui"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
	debug      bool
	noColor    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "rolectl",
		Short: "Keep installed packages in line with the configured roles",
		Long: "rolectl maps roles to lists of packages published in a remote catalog\n" +
			"and installs or removes packages so the machine matches the roles\n" +
			"recorded in the state file.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Apply(logging.RuntimeConfig(opts.debug, opts.noColor))
			ui.ConfigureColor(opts.noColor)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ~/.roles/rolectl.toml or $ROLECTL_CONFIG)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable coloured output")

	root.AddCommand(addCmd(opts))
	root.AddCommand(removeCmd(opts))
	root.AddCommand(updateCmd(opts))
	root.AddCommand(currentCmd(opts))
	root.AddCommand(listCmd(opts))
	root.AddCommand(listAllCmd(opts))
	root.AddCommand(historyCmd(opts))
	return root
}
