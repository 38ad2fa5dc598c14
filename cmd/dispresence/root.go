package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var dataDirFlag string

	ctx := newCommandContext(&dataDirFlag)
	edit := newEditCommand(ctx)

	rootCmd := &cobra.Command{
		Use:           "dispresence [file]",
		Short:         "Edit and broadcast Discord rich presence",
		Long:          "dispresence edits rich presence files and keeps the activity they describe\nset on the local Discord client. Without a subcommand it opens the editor.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          edit.Args,
		RunE:          edit.RunE,
	}

	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory for settings, presets, and logs (default ~/.dispresence)")

	rootCmd.AddCommand(edit)
	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newInitCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
