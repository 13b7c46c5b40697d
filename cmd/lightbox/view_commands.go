package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lightbox/internal/api"
	"lightbox/internal/ipc"
)

func newSelectCommand(ctx *commandContext) *cobra.Command {
	var viewport int

	cmd := &cobra.Command{
		Use:   "select <session-id> <series-uid>",
		Short: "Load a series into a viewport",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				vp, err := resolveViewport(client, args[0], viewport)
				if err != nil {
					return err
				}
				resp, err := client.SelectSeries(args[0], vp, args[1])
				if err != nil {
					return err
				}
				snap := findViewport(resp.Session, vp)
				if snap == nil {
					return fmt.Errorf("viewport %d missing from session snapshot", vp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Viewport %d loading series %s (%d instances)\n",
					vp, args[1], snap.StackLength)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&viewport, "viewport", -1, "Target viewport (defaults to the active one)")
	return cmd
}

func newNextCommand(ctx *commandContext) *cobra.Command {
	var viewport int

	cmd := &cobra.Command{
		Use:   "next <session-id>",
		Short: "Step a viewport forward one instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return navigate(cmd, ctx, args[0], viewport, 1)
		},
	}

	cmd.Flags().IntVar(&viewport, "viewport", -1, "Target viewport (defaults to the active one)")
	return cmd
}

func newPrevCommand(ctx *commandContext) *cobra.Command {
	var viewport int

	cmd := &cobra.Command{
		Use:   "prev <session-id>",
		Short: "Step a viewport back one instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return navigate(cmd, ctx, args[0], viewport, -1)
		},
	}

	cmd.Flags().IntVar(&viewport, "viewport", -1, "Target viewport (defaults to the active one)")
	return cmd
}

func newSeekCommand(ctx *commandContext) *cobra.Command {
	var viewport int

	cmd := &cobra.Command{
		Use:   "seek <session-id> <index>",
		Short: "Jump a viewport to a stack index (clamped to the stack bounds)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[1])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				vp, err := resolveViewport(client, args[0], viewport)
				if err != nil {
					return err
				}
				resp, err := client.Seek(args[0], vp, index)
				if err != nil {
					return err
				}
				printPosition(cmd, resp.Session, vp)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&viewport, "viewport", -1, "Target viewport (defaults to the active one)")
	return cmd
}

func navigate(cmd *cobra.Command, ctx *commandContext, sessionID string, viewport, direction int) error {
	return ctx.withClient(func(client *ipc.Client) error {
		vp, err := resolveViewport(client, sessionID, viewport)
		if err != nil {
			return err
		}
		resp, err := client.Navigate(sessionID, vp, direction)
		if err != nil {
			return err
		}
		printPosition(cmd, resp.Session, vp)
		return nil
	})
}

// resolveViewport falls back to the session's active viewport when the flag
// was left at its default.
func resolveViewport(client *ipc.Client, sessionID string, viewport int) (int, error) {
	if viewport >= 0 {
		return viewport, nil
	}
	resp, err := client.SessionGet(sessionID)
	if err != nil {
		return 0, err
	}
	return resp.Session.ActiveViewport, nil
}

func findViewport(session api.Session, id int) *api.Viewport {
	for i := range session.Viewports {
		if session.Viewports[i].ID == id {
			return &session.Viewports[i]
		}
	}
	return nil
}

func printPosition(cmd *cobra.Command, session api.Session, viewport int) {
	snap := findViewport(session, viewport)
	if snap == nil || snap.StackLength == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Viewport %d is empty\n", viewport)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Viewport %d at instance %d/%d\n",
		viewport, snap.CurrentIndex+1, snap.StackLength)
}
