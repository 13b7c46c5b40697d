package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"lightbox/internal/api"
	"lightbox/internal/ipc"
	"lightbox/internal/render"
)

func newVolumeCommand(ctx *commandContext) *cobra.Command {
	volumeCmd := &cobra.Command{
		Use:   "volume",
		Short: "Volumetric reconstruction of a loaded series",
	}

	volumeCmd.AddCommand(newVolumeBuildCommand(ctx))
	volumeCmd.AddCommand(newVolumeStatusCommand(ctx))
	volumeCmd.AddCommand(newVolumeDropCommand(ctx))

	return volumeCmd
}

func newVolumeBuildCommand(ctx *commandContext) *cobra.Command {
	var viewport int

	cmd := &cobra.Command{
		Use:   "build <session-id>",
		Short: "Assemble the viewport's series into a voxel grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				vp, err := resolveViewport(client, args[0], viewport)
				if err != nil {
					return err
				}
				resp, err := client.VolumeBuild(args[0], vp)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Volume built: %s\n", volumeSummary(resp.Volume))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&viewport, "viewport", -1, "Viewport whose series to assemble (defaults to the active one)")
	return cmd
}

func newVolumeStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show the session's reconstructed volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.VolumeStatus(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Volume: %s\n", volumeSummary(resp.Volume))
				return nil
			})
		},
	}
}

func newVolumeDropCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <session-id>",
		Short: "Release the session's reconstructed volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.VolumeDrop(args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Volume dropped")
				return nil
			})
		},
	}
}

func newSliceCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "slice <session-id> <plane> <index>",
		Short: "Extract a reformatted plane from the reconstructed volume",
		Long: "Extract one axial, sagittal, or coronal plane from the session's " +
			"reconstructed volume. With --output the slice is window-levelled and " +
			"written as a PNG; otherwise its dimensions are reported.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid slice index %q", args[2])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Slice(args[0], args[1], index)
				if err != nil {
					return err
				}
				slice := resp.Slice
				if outputPath == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s slice %d: %dx%d pixels\n",
						slice.Plane, slice.Index, slice.Width, slice.Height)
					return nil
				}
				if err := writeSlicePNG(slice, outputPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s slice %d (%dx%d) to %s\n",
					slice.Plane, slice.Index, slice.Width, slice.Height, outputPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the slice as a PNG to this path")
	return cmd
}

func writeSlicePNG(slice api.SliceData, path string) error {
	img := render.ImageFromSlice(slice.Width, slice.Height, api.DecodeSamples(slice.Samples))
	frame := render.RenderFrame(img)
	if frame == nil || len(frame.Gray) == 0 {
		return fmt.Errorf("slice %d rendered empty", slice.Index)
	}
	gray := &image.Gray{
		Pix:    frame.Gray,
		Stride: frame.Width,
		Rect:   image.Rect(0, 0, frame.Width, frame.Height),
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, gray); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func volumeSummary(v api.VolumeSummary) string {
	return fmt.Sprintf("series %s, %dx%dx%d voxels, %.0f%% coverage",
		v.SeriesUID, v.Width, v.Height, v.Depth, v.Coverage*100)
}
