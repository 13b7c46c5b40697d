package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lightbox/internal/daemonctl"
)

const (
	daemonStartWait = 10 * time.Second
	daemonStopGrace = 5 * time.Second
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the lightbox daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonLaunchOptions(ctx, startLogLevel), daemonStartWait)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			announceStart(stdout, result, "Daemon started", "Daemon already running")
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Log level for the launched daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the lightbox daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), daemonStopGrace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}

			if result.StopAcknowledged {
				fmt.Fprintln(stdout, "Closing sessions...")
			} else {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			announceForcedKill(stdout, result)
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and archive status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if statusResp.Running {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", statusResp.PID), colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "Not running (run `lightbox start`)", colorize))
			}
			if statusResp.IndexDBPath != "" {
				fmt.Fprintln(stdout, renderStatusLine("Archive index", statusInfo, statusResp.IndexDBPath, colorize))
			}
			fmt.Fprintln(stdout, renderStatusLine("Open sessions", statusInfo, strconv.Itoa(statusResp.OpenSessions), colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Preflight Checks", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if len(statusResp.Checks) == 0 {
				fmt.Fprintln(stdout, renderStatusLine("Checks", statusInfo, "None reported", colorize))
			}
			for _, check := range statusResp.Checks {
				fmt.Fprintln(stdout, renderStatusLine(check.Name, statusKindFromCheck(check.Passed), check.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Archive", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := [][]string{
				{"Studies", strconv.FormatInt(statusResp.Archive.Studies, 10)},
				{"Series", strconv.FormatInt(statusResp.Archive.Series, 10)},
				{"Instances", strconv.FormatInt(statusResp.Archive.Instances, 10)},
				{"Pixel data", formatBytes(statusResp.Archive.SizeBytes)},
			}
			table := renderTable([]tableColumn{column("Resource"), numColumn("Total")}, rows)
			fmt.Fprintln(stdout, table)
			return nil
		},
	}

	var restartLogLevel string
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the lightbox daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(ctx.socketPath(), ctx.configValue(), exe, daemonLaunchOptions(ctx, restartLogLevel), daemonStopGrace, daemonStartWait)
			if err != nil {
				return err
			}

			if result.WasRunning {
				announceForcedKill(stdout, result.Stop)
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			announceStart(stdout, result.Start, "Daemon restarted", "Daemon restarted")
			return nil
		},
	}
	restartCmd.Flags().StringVar(&restartLogLevel, "log-level", "", "Log level for the relaunched daemon")

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

// announceStart prints one line describing how the start attempt resolved.
// The caller chooses the wording for the started and already-running states.
func announceStart(stdout io.Writer, result daemonctl.StartResult, startedLine, alreadyLine string) {
	switch result.State {
	case daemonctl.StartStateStarted:
		fmt.Fprintln(stdout, startedLine)
	case daemonctl.StartStateAlreadyRunning:
		fmt.Fprintln(stdout, alreadyLine)
	case daemonctl.StartStateRequested:
		if msg := strings.TrimSpace(result.Message); msg != "" {
			fmt.Fprintln(stdout, msg)
			return
		}
		fmt.Fprintln(stdout, "Start request sent")
	}
}

func announceForcedKill(stdout io.Writer, result daemonctl.StopResult) {
	if result.ForcedKill && result.PID > 0 {
		fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
	}
}

// daemonExecutable resolves the current binary, which doubles as the daemon
// when relaunched with the run subcommand.
func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, logLevel string) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		SocketPath: flagValue(ctx.socketFlag),
		ConfigPath: flagValue(ctx.configFlag),
		LogLevel:   strings.TrimSpace(logLevel),
	}
}

func flagValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return strings.TrimSpace(*ptr)
}
