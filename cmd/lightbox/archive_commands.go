package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lightbox/internal/config"
	"lightbox/internal/ipc"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <directory>",
		Short: "Import DICOM files from a directory into the archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve import directory: %w", err)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Import(dir)
				if err != nil {
					return err
				}
				summary := resp.Summary
				fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d files: %d imported, %d skipped, %d failed\n",
					summary.Scanned, summary.Imported, summary.Skipped, summary.Failed)
				return nil
			})
		},
	}
}

func newStudiesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "studies",
		Short: "List archived studies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Studies()
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				if len(resp.Studies) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Archive is empty")
					return nil
				}
				rows := make([][]string, 0, len(resp.Studies))
				for _, st := range resp.Studies {
					rows = append(rows, []string{st.StudyUID, st.PatientName, st.StudyDate, st.Description})
				}
				table := renderTable(
					[]tableColumn{column("Study UID"), column("Patient"), column("Date"), column("Description")},
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

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "series <study-uid>",
		Short: "List the series of a study",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Series(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				if len(resp.Series) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Study has no series")
					return nil
				}
				rows := make([][]string, 0, len(resp.Series))
				for _, se := range resp.Series {
					rows = append(rows, []string{
						se.SeriesUID,
						se.Modality,
						strconv.Itoa(se.Number),
						se.Description,
						strconv.Itoa(se.InstanceCount),
					})
				}
				table := renderTable(
					[]tableColumn{column("Series UID"), column("Modality"), numColumn("No."), column("Description"), numColumn("Instances")},
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

func newInstancesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "instances <series-uid>",
		Short: "List the instances of a series in stack order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Instances(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				if len(resp.Instances) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Series has no instances")
					return nil
				}
				rows := make([][]string, 0, len(resp.Instances))
				for i, inst := range resp.Instances {
					rows = append(rows, []string{
						strconv.Itoa(i),
						inst.SOPUID,
						strconv.Itoa(inst.InstanceNumber),
					})
				}
				table := renderTable(
					[]tableColumn{numColumn("Index"), column("SOP UID"), numColumn("Instance No.")},
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
