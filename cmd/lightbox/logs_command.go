package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lightbox/internal/ipc"
	"lightbox/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			initialLimit := lines
			if initialLimit < 0 {
				initialLimit = 0
			}
			initialOffset := int64(-1)
			if initialLimit == 0 {
				initialOffset = 0
			}

			client, dialErr := ctx.dialClient()
			if dialErr != nil {
				// Without a daemon the log file is still on disk.
				return tailLogFile(cmd, ctx, initialOffset, initialLimit, follow)
			}
			defer client.Close()

			cmdCtx := cmd.Context()
			offset := initialOffset
			limit := initialLimit
			printed := false
			for {
				resp, err := client.LogTail(ipc.LogTailRequest{
					Offset:     offset,
					Limit:      limit,
					Follow:     follow,
					WaitMillis: 1000,
				})
				if err != nil {
					return fmt.Errorf("tail logs: %w", err)
				}
				for _, line := range resp.Lines {
					fmt.Fprintln(cmd.OutOrStdout(), line)
					printed = true
				}
				offset = resp.Offset
				limit = 0
				if !follow {
					if !printed {
						fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
					}
					return nil
				}
				select {
				case <-cmdCtx.Done():
					return nil
				default:
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}

// tailLogFile reads the daemon log straight from disk.
func tailLogFile(cmd *cobra.Command, ctx *commandContext, offset int64, limit int, follow bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	path := cfg.CurrentLogPath()

	tailCtx := cmd.Context()
	printed := false
	for {
		result, err := logs.Tail(tailCtx, path, logs.TailOptions{
			Offset: offset,
			Limit:  limit,
			Follow: follow,
			Wait:   time.Second,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("tail logs: %w", err)
		}
		for _, line := range result.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		offset = result.Offset
		limit = 0
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		select {
		case <-tailCtx.Done():
			return nil
		default:
		}
	}
}
