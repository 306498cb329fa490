package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"panscan/internal/media/ffprobe"
	"panscan/internal/services"
)

type probeReport struct {
	Path        string  `json:"path"`
	Format      string  `json:"format"`
	Codec       string  `json:"codec"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FPS         float64 `json:"fps"`
	TotalFrames int     `json:"total_frames"`
	Duration    float64 `json:"duration_seconds"`
	SizeBytes   int64   `json:"size_bytes"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe <video>",
		Short: "Show the stream metadata detect would use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			probe, err := ffprobe.Inspect(cmd.Context(), cfg.Tools.FFprobe, args[0])
			if err != nil {
				return services.Wrap(services.ErrExternalTool, "probe", "ffprobe", args[0], err)
			}
			stream, ok := probe.PrimaryVideo()
			if !ok {
				return services.Wrap(services.ErrValidation, "probe", "ffprobe", "no video stream in "+args[0], nil)
			}
			duration := probe.DurationSeconds()
			report := probeReport{
				Path:        args[0],
				Format:      probe.Format.FormatName,
				Codec:       stream.CodecName,
				Width:       stream.Width,
				Height:      stream.Height,
				FPS:         stream.FrameRate(),
				TotalFrames: stream.FrameCount(duration),
				Duration:    duration,
				SizeBytes:   probe.SizeBytes(),
			}

			if asJSON || !interactive(cmd) {
				return writeJSON(cmd, report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderFields([][2]string{
				{"Path", report.Path},
				{"Container", report.Format},
				{"Codec", report.Codec},
				{"Resolution", fmt.Sprintf("%dx%d", report.Width, report.Height)},
				{"Frame rate", strconv.FormatFloat(report.FPS, 'f', 3, 64)},
				{"Frames", strconv.Itoa(report.TotalFrames)},
				{"Duration", fmt.Sprintf("%.2fs", report.Duration)},
			}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print metadata as JSON")
	return cmd
}
