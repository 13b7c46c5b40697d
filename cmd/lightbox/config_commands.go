package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lightbox/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	cmd.AddCommand(newConfigValidateCommand(), newConfigInitCommand(), newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveConfigTarget(targetPath)
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}
			if !overwrite {
				if err := rejectExisting(target); err != nil {
					return err
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to pick an archive driver (archive.driver) before starting the daemon.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

// resolveConfigTarget expands the requested path, or falls back to the
// platform default location when none was given.
func resolveConfigTarget(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(raw)
}

func rejectExisting(target string) error {
	_, err := os.Stat(target)
	switch {
	case err == nil:
		return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
	case os.IsNotExist(err):
		return nil
	default:
		return fmt.Errorf("check config path: %w", err)
	}
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE:  runConfigValidate,
	}
}

// runConfigValidate loads the effective configuration and reports whether it
// passes validation, creating any missing directories along the way.
func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, path, exists, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file: %s\n", path)
	if !exists {
		fmt.Fprintln(out, "File not present, using built-in defaults")
	}
	fmt.Fprintln(out, "Configuration valid")
	return nil
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Paths", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Data directory", statusInfo, cfg.Paths.DataDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Log directory", statusInfo, cfg.Paths.LogDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Control socket", statusInfo, cfg.SocketPath(), colorize))
			if bind := strings.TrimSpace(cfg.Paths.APIBind); bind != "" {
				fmt.Fprintln(out, renderStatusLine("API bind", statusInfo, bind, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("API bind", statusInfo, "disabled", colorize))
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Archive", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Source driver", statusInfo, cfg.Archive.Driver, colorize))
			if cfg.Archive.Driver == "local" {
				fmt.Fprintln(out, renderStatusLine("Index driver", statusInfo, cfg.Archive.IndexDriver, colorize))
				fmt.Fprintln(out, renderStatusLine("Blob driver", statusInfo, cfg.Archive.BlobDriver, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("DICOMweb URL", statusInfo, cfg.DICOMWeb.BaseURL, colorize))
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Viewer", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Max sessions", statusInfo, fmt.Sprintf("%d", cfg.Viewer.MaxSessions), colorize))
			fmt.Fprintln(out, renderStatusLine("Default layout", statusInfo, fmt.Sprintf("%d", cfg.Viewer.DefaultLayout), colorize))
			fmt.Fprintln(out, renderStatusLine("Cine default FPS", statusInfo, fmt.Sprintf("%d", cfg.Viewer.CineDefaultFPS), colorize))
			fmt.Fprintln(out, renderStatusLine("Cine loop", statusInfo, yesNo(cfg.Viewer.CineLoop), colorize))
			fmt.Fprintln(out, renderStatusLine("Volume workers", statusInfo, fmt.Sprintf("%d", cfg.Volume.BuildWorkers), colorize))
			return nil
		},
	}
}
