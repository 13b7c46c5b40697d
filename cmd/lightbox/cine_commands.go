package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lightbox/internal/ipc"
)

func newCineCommand(ctx *commandContext) *cobra.Command {
	cineCmd := &cobra.Command{
		Use:   "cine",
		Short: "Control cine autoplay",
	}

	cineCmd.AddCommand(newCineStartCommand(ctx))
	cineCmd.AddCommand(newCineStopCommand(ctx))

	return cineCmd
}

func newCineStartCommand(ctx *commandContext) *cobra.Command {
	var viewport int
	var fps int

	cmd := &cobra.Command{
		Use:   "start <session-id>",
		Short: "Start cine playback on a viewport",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				vp, err := resolveViewport(client, args[0], viewport)
				if err != nil {
					return err
				}
				resp, err := client.CineStart(args[0], vp, fps)
				if err != nil {
					return err
				}
				cine := resp.Session.Cine
				fmt.Fprintf(cmd.OutOrStdout(), "Cine playing at %d fps on viewport %d\n", cine.FPS, cine.ViewportID)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&viewport, "viewport", -1, "Target viewport (defaults to the active one)")
	cmd.Flags().IntVar(&fps, "fps", 0, "Frames per second (0 uses the configured default)")
	return cmd
}

func newCineStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <session-id>",
		Short: "Stop cine playback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.CineStop(args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cine stopped")
				return nil
			})
		},
	}
}
