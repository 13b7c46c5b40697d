package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"lightbox/internal/api"
	"lightbox/internal/ipc"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Create and manage viewing sessions",
	}

	sessionCmd.AddCommand(newSessionCreateCommand(ctx))
	sessionCmd.AddCommand(newSessionListCommand(ctx))
	sessionCmd.AddCommand(newSessionShowCommand(ctx))
	sessionCmd.AddCommand(newSessionCloseCommand(ctx))
	sessionCmd.AddCommand(newSessionLayoutCommand(ctx))
	sessionCmd.AddCommand(newSessionActiveCommand(ctx))
	sessionCmd.AddCommand(newSessionSyncCommand(ctx))

	return sessionCmd
}

func newSessionCreateCommand(ctx *commandContext) *cobra.Command {
	var layout int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new viewing session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionCreate(layout)
				if err != nil {
					return err
				}
				session := resp.Session
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s created with %d viewports\n", session.ID, len(session.Viewports))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&layout, "layout", 0, "Viewport count (1, 2, 4, or 6; 0 uses the configured default)")
	return cmd
}

func newSessionListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionList()
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				if len(resp.Sessions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No open sessions")
					return nil
				}
				rows := make([][]string, 0, len(resp.Sessions))
				for _, session := range resp.Sessions {
					rows = append(rows, []string{
						session.ID,
						strconv.Itoa(session.Layout),
						strconv.Itoa(session.ActiveViewport),
						yesNo(session.SyncEnabled),
						cineSummary(session.Cine),
						session.LastAccess.Format(time.RFC3339),
					})
				}
				table := renderTable(
					[]tableColumn{column("Session"), numColumn("Layout"), numColumn("Active VP"), column("Sync"), column("Cine"), column("Last Access")},
					rows,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionGet(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				printSession(cmd, resp.Session)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newSessionCloseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "close <session-id>",
		Short: "Close a session and release its viewports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.SessionClose(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s closed\n", args[0])
				return nil
			})
		},
	}
}

func newSessionLayoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "layout <session-id> <viewports>",
		Short: "Switch the session layout (resets all viewports)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid layout %q", args[1])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SetLayout(args[0], layout)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Layout set to %d, all viewports cleared\n", resp.Session.Layout)
				return nil
			})
		},
	}
}

func newSessionActiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "active <session-id> <viewport>",
		Short: "Focus a viewport",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			viewport, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid viewport %q", args[1])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SetActive(args[0], viewport)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Viewport %d is now active\n", resp.Session.ActiveViewport)
				return nil
			})
		},
	}
}

func newSessionSyncCommand(ctx *commandContext) *cobra.Command {
	var enable bool
	var disable bool
	var membersList []int
	var allMembers bool

	cmd := &cobra.Command{
		Use:   "sync <session-id>",
		Short: "Control synchronized scrolling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if enable && disable {
				return errors.New("specify only one of --enable or --disable")
			}
			if allMembers && cmd.Flags().Changed("members") {
				return errors.New("specify only one of --members or --all")
			}

			var enabled *bool
			if enable {
				v := true
				enabled = &v
			}
			if disable {
				v := false
				enabled = &v
			}

			// nil leaves the member set unchanged; an empty slice restores all.
			var members []int
			if allMembers {
				members = []int{}
			}
			if cmd.Flags().Changed("members") {
				members = membersList
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SetSync(args[0], enabled, members)
				if err != nil {
					return err
				}
				if resp.Session.SyncEnabled {
					fmt.Fprintln(cmd.OutOrStdout(), "Synchronized scrolling enabled")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Synchronized scrolling disabled")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&enable, "enable", false, "Enable synchronized scrolling")
	cmd.Flags().BoolVar(&disable, "disable", false, "Disable synchronized scrolling")
	cmd.Flags().IntSliceVar(&membersList, "members", nil, "Viewports that participate in sync")
	cmd.Flags().BoolVar(&allMembers, "all", false, "Restore every viewport as a sync member")
	return cmd
}

func printSession(cmd *cobra.Command, session api.Session) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader(fmt.Sprintf("Session %s", session.ID), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Created", statusInfo, session.CreatedAt.Format(time.RFC3339), colorize))
	fmt.Fprintln(out, renderStatusLine("Layout", statusInfo, strconv.Itoa(session.Layout), colorize))
	fmt.Fprintln(out, renderStatusLine("Active viewport", statusInfo, strconv.Itoa(session.ActiveViewport), colorize))
	fmt.Fprintln(out, renderStatusLine("Sync", statusInfo, yesNo(session.SyncEnabled), colorize))
	fmt.Fprintln(out, renderStatusLine("Cine", statusInfo, cineSummary(session.Cine), colorize))
	if session.VolumeSeries != "" {
		fmt.Fprintln(out, renderStatusLine("Volume", statusInfo, fmt.Sprintf("built from series %s", session.VolumeSeries), colorize))
	}
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(session.Viewports))
	for _, vp := range session.Viewports {
		rows = append(rows, []string{
			strconv.Itoa(vp.ID),
			vp.SeriesUID,
			viewportPosition(vp),
			viewportState(vp),
			displayedSOP(vp),
		})
	}
	table := renderTable(
		[]tableColumn{numColumn("VP"), column("Series"), numColumn("Position"), column("State"), column("Displayed")},
		rows,
	)
	fmt.Fprintln(out, table)
}

func cineSummary(cine api.Cine) string {
	if !cine.Active {
		return "off"
	}
	return fmt.Sprintf("%d fps on viewport %d", cine.FPS, cine.ViewportID)
}

func viewportPosition(vp api.Viewport) string {
	if vp.StackLength == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d", vp.CurrentIndex+1, vp.StackLength)
}

func viewportState(vp api.Viewport) string {
	switch {
	case vp.LastError != "":
		return "error: " + vp.LastError
	case vp.Loading:
		return "loading"
	case vp.Ready:
		return "ready"
	default:
		return "empty"
	}
}

func displayedSOP(vp api.Viewport) string {
	if vp.Displayed == nil {
		return "-"
	}
	return vp.Displayed.SOPUID
}
