package main

import (
	"errors"
	"fmt"

	"github.com/danmuck/rolectl/internal/journal"
	"github.com/danmuck/rolectl/internal/roles"
	"github.com/danmuck/rolectl/internal/ui"
	"github.com/spf13/cobra"
)

func currentCmd(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "current",
		Short: "Show the configured roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ui.ParseFormat(output)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			m, closeFn, err := openManager(cfg, managerOptions{})
			if err != nil {
				return err
			}
			defer closeFn()

			set, err := m.Current()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == ui.FormatText {
				ui.RenderRoles(out, set)
				return nil
			}
			return ui.Encode(out, format, struct {
				Roles roles.Set `json:"roles" yaml:"roles"`
			}{Roles: set})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}

func listCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the roles published in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			m, closeFn, err := openManager(cfg, managerOptions{})
			if err != nil {
				return err
			}
			defer closeFn()

			names, err := m.ListRoles(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, ui.WarnMsg("No roles are defined in the catalog index."))
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

func listAllCmd(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list-all",
		Short: "List every catalog role with its tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ui.ParseFormat(output)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			m, closeFn, err := openManager(cfg, managerOptions{})
			if err != nil {
				return err
			}
			defer closeFn()

			listings, err := m.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == ui.FormatText {
				ui.RenderListings(out, listings)
				return nil
			}
			return ui.Encode(out, format, listings)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}

func historyCmd(opts *globalOptions) *cobra.Command {
	var (
		output string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded add, remove and update runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ui.ParseFormat(output)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.JournalFile == "" {
				return errors.New("run journal is disabled (journal_file is empty)")
			}
			j, err := journal.Open(cfg.JournalFile)
			if err != nil {
				return err
			}
			defer j.Close()

			entries, err := j.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == ui.FormatText {
				ui.RenderHistory(out, entries)
				return nil
			}
			if entries == nil {
				entries = []journal.Entry{}
			}
			return ui.Encode(out, format, entries)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Show at most n runs (0 for all)")
	return cmd
}
