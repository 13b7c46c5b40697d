package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var socketFlag, configFlag string
	ctx := newCommandContext(&socketFlag, &configFlag)

	rootCmd := &cobra.Command{
		Use:           "lightbox",
		Short:         "Multi-viewport medical image sessions from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if shouldSkipConfig(cmd) {
			return nil
		}
		_, err := ctx.ensureConfig()
		return err
	}
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}

	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "Path to the lightbox daemon socket")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newDaemonCommands(ctx)...)
	rootCmd.AddCommand(
		newDaemonRunCommand(ctx),
		newLogsCommand(ctx),
		newConfigCommand(ctx),
		newImportCommand(ctx),
		newStudiesCommand(ctx),
		newSeriesCommand(ctx),
		newInstancesCommand(ctx),
		newSessionCommand(ctx),
		newSelectCommand(ctx),
		newNextCommand(ctx),
		newPrevCommand(ctx),
		newSeekCommand(ctx),
		newCineCommand(ctx),
		newVolumeCommand(ctx),
		newSliceCommand(ctx),
	)

	return rootCmd
}
