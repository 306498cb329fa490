package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"panscan/internal/catalog"
	"panscan/internal/config"
	"panscan/internal/logging"
	"panscan/internal/pipeline"
	"panscan/internal/services"
	"panscan/internal/video"
)

// openVideo is the decoder used by detect. Tests replace it with an
// in-memory source.
var openVideo video.Opener = video.Open

type detectOptions struct {
	output    string
	settings  []string
	feature   string
	workers   int
	stitch    bool
	exportAll bool
	json      bool
}

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var opts detectOptions

	cmd := &cobra.Command{
		Use:   "detect <video>",
		Short: "Detect pan groups and export their frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			merged, err := mergeDetectSettings(cmd, cfg, opts)
			if err != nil {
				return err
			}
			return runDetect(cmd, ctx, merged, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output prefix (default <output_dir>/<video name>)")
	cmd.Flags().StringArrayVar(&opts.settings, "set", nil, "Override a setting as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.feature, "feature", "", "Feature family: ORB or SIFT")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent pair estimations (0 uses all CPUs)")
	cmd.Flags().BoolVar(&opts.stitch, "stitch", false, "Stitch a panorama for each group")
	cmd.Flags().BoolVar(&opts.exportAll, "export-all", false, "Export every sampled frame of a group")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the result record as JSON")
	return cmd
}

// mergeDetectSettings layers --set pairs and the dedicated flags over the
// loaded config. Dedicated flags win over --set when both name a setting.
func mergeDetectSettings(cmd *cobra.Command, cfg *config.Config, opts detectOptions) (*config.Config, error) {
	values, err := config.ParseSettings(opts.settings)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "detect", "parse settings", "", err)
	}
	flags := cmd.Flags()
	if flags.Changed("feature") {
		values["feature"] = opts.feature
	}
	if flags.Changed("workers") {
		values["workers"] = strconv.Itoa(opts.workers)
	}
	if flags.Changed("stitch") {
		values["stitch"] = strconv.FormatBool(opts.stitch)
	}
	if flags.Changed("export-all") {
		values["export_all_in_group"] = strconv.FormatBool(opts.exportAll)
	}
	if len(values) == 0 {
		return cfg, nil
	}
	merged, err := cfg.ApplySettings(values)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "detect", "apply settings", "", err)
	}
	return merged, nil
}

func runDetect(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, videoPath string, opts detectOptions) error {
	logger, err := ctx.logger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	runner, err := pipeline.New(cfg, logger, pipeline.WithOpener(openVideo))
	if err != nil {
		return err
	}
	req, prefix, err := runner.Prepare(pipeline.Request{VideoPath: videoPath, Output: opts.output})
	if err != nil {
		return err
	}

	started := time.Now().UTC()
	result, runErr := runner.Run(cmd.Context(), req)
	if cfg.Catalog.Enabled {
		run := catalogRun(req, prefix, started, result, runErr)
		recordRun(context.WithoutCancel(cmd.Context()), cfg, run, logger)
	}
	if runErr != nil {
		return runErr
	}

	if opts.json || !interactive(cmd) {
		return writeJSON(cmd, result)
	}
	printDetectSummary(cmd, result)
	return nil
}

func catalogRun(req pipeline.Request, prefix string, started time.Time, result *pipeline.Result, runErr error) catalog.Run {
	run := catalog.Run{
		ID:           req.RunID,
		VideoPath:    req.VideoPath,
		OutputPrefix: prefix,
		Status:       catalog.StatusCompleted,
		StartedAt:    started,
		FinishedAt:   time.Now().UTC(),
	}
	if runErr != nil {
		run.Status = catalog.StatusFailed
		run.FailureKind = services.FailureKind(runErr)
		run.ErrorMessage = runErr.Error()
		return run
	}
	run.GroupCount = len(result.Groups)
	run.PanoCount = result.PanoCount()
	if payload, err := json.Marshal(result); err == nil {
		run.Result = payload
	}
	return run
}

// recordRun stores the run in the catalog. A catalog failure never changes
// the outcome of the detection itself.
func recordRun(ctx context.Context, cfg *config.Config, run catalog.Run, logger *slog.Logger) {
	store, err := catalog.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "catalog_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog_path or set [catalog] enabled = false"),
			logging.String(logging.FieldImpact, "this run will not appear in panscan history"),
		)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, run); err != nil {
		logging.WarnWithContext(logger, "failed to record run", "catalog_record_failed",
			logging.Error(err),
			logging.String("run_id", run.ID),
			logging.String(logging.FieldImpact, "this run will not appear in panscan history"),
		)
	}
}

func printDetectSummary(cmd *cobra.Command, result *pipeline.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Video:   %s\n", filepath.Base(result.Video))
	fmt.Fprintf(out, "Run:     %s\n", result.RunID)
	fmt.Fprintf(out, "Output:  %s\n", result.OutputPrefix)
	s := result.Stats
	fmt.Fprintf(out, "Frames:  %d decoded, %d sampled, %d blurry\n", s.Decoded, s.Sampled, s.Blurry)
	fmt.Fprintf(out, "Pairs:   %d of %d classified as pan\n", s.PanPairs, s.Pairs)
	if len(result.Groups) == 0 {
		fmt.Fprintln(out, "No pan groups found")
		return
	}

	rows := make([][]string, 0, len(result.Groups))
	for _, g := range result.Groups {
		rows = append(rows, []string{
			strconv.Itoa(g.ID),
			string(g.Direction),
			strconv.Itoa(len(g.SampledIndices)),
			fmt.Sprintf("%d-%d", g.FrameIndices[0], g.FrameIndices[len(g.FrameIndices)-1]),
			strconv.Itoa(len(g.FrameURIs)),
			fmt.Sprintf("%.0f%%", g.OverlapEstimate*100),
			panoCell(g),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Group", "Direction", "Sampled", "Frames", "Exported", "Overlap", "Pano"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft},
	))
}

func panoCell(g pipeline.GroupResult) string {
	switch {
	case g.PanoURI != nil:
		return filepath.Base(*g.PanoURI)
	case g.Stitch == nil:
		return "-"
	case g.Stitch.Verdict != nil && g.Stitch.Verdict.Reason != "":
		return "rejected: " + g.Stitch.Verdict.Reason
	default:
		return strings.ReplaceAll(g.Stitch.Status, "_", " ")
	}
}
