package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"panscan/internal/config"
	"panscan/internal/features"
	"panscan/internal/grouping"
	"panscan/internal/logging"
	"panscan/internal/motion"
	"panscan/internal/sampler"
	"panscan/internal/services"
	"panscan/internal/stageexec"
	"panscan/internal/stitch"
	"panscan/internal/storage"
	"panscan/internal/video"
)

// exportWorkers bounds concurrent JPEG writes within one group.
const exportWorkers = 4

// Runner executes detection runs. It is built once per invocation from an
// immutable configuration.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	open       video.Opener
	estimator  *motion.Estimator
	thresholds motion.Thresholds
	stitcher   stitch.Stitcher
	gate       stitch.Gate
}

// Option customises a Runner.
type Option func(*Runner)

// WithOpener replaces the video decoder.
func WithOpener(open video.Opener) Option {
	return func(r *Runner) { r.open = open }
}

// WithStitcher replaces the panorama stitcher.
func WithStitcher(s stitch.Stitcher) Option {
	return func(r *Runner) { r.stitcher = s }
}

// New validates cfg and prepares the estimator and stitcher.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "config is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "invalid config", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	est, err := motion.NewEstimator(motion.OptionsFromConfig(cfg))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "motion estimator", err)
	}
	r := &Runner{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		open:       video.Open,
		estimator:  est,
		thresholds: motion.ThresholdsFromConfig(cfg),
		gate: stitch.Gate{
			MinAspect:       cfg.Stitch.MinPanoAspectRatio,
			MaxBlackPercent: cfg.Stitch.MaxBlackBorderPercent,
		},
	}
	r.stitcher = stitch.NewDefault(est, logging.NewComponentLogger(logger, "stitch"))
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Request names the input video and, optionally, the output prefix and run id.
type Request struct {
	VideoPath string
	Output    string
	RunID     string
}

// Prepare resolves the run id and output prefix without touching the video.
func (r *Runner) Prepare(req Request) (Request, string, error) {
	if strings.TrimSpace(req.VideoPath) == "" {
		return req, "", services.Wrap(services.ErrValidation, "pipeline", "request", "video path is required", nil)
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	prefix, err := storage.ResolvePrefix(r.cfg, req.Output, req.VideoPath)
	if err != nil {
		return req, "", err
	}
	return req, prefix, nil
}

// Run processes one video.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	req, prefix, err := r.Prepare(req)
	if err != nil {
		return nil, err
	}
	ctx = services.WithRunID(ctx, req.RunID)
	ctx = services.WithVideo(ctx, filepath.Base(req.VideoPath))
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("detection run started",
		logging.String("video_path", req.VideoPath),
		logging.String("output_prefix", prefix),
		logging.String("feature", r.cfg.Motion.Feature),
		logging.Int("sample_every", r.cfg.Sampling.SampleEvery),
		logging.Bool("stitch", r.cfg.Stitch.Enabled),
	)

	result := &Result{RunID: req.RunID, Video: req.VideoPath, OutputPrefix: prefix, Groups: []GroupResult{}}

	var frames []sampler.Frame
	err = stageexec.Run(ctx, r.logger, "sample", func(ctx context.Context, logger *slog.Logger) error {
		var (
			stats sampler.Stats
			meta  video.Meta
			err   error
		)
		frames, stats, meta, err = r.sample(ctx, req.VideoPath, logger)
		if err != nil {
			return err
		}
		result.VideoMeta = VideoMeta{
			TotalFrames: meta.TotalFrames,
			FPS:         meta.FPS,
			Width:       meta.Width,
			Height:      meta.Height,
			SampleEvery: r.cfg.Sampling.SampleEvery,
		}
		if result.VideoMeta.TotalFrames <= 0 {
			result.VideoMeta.TotalFrames = stats.Decoded
		}
		result.Stats.Decoded, result.Stats.Sampled, result.Stats.Blurry = stats.Decoded, stats.Sampled, stats.Blurry
		logger.Info("frames sampled",
			logging.Int("decoded", stats.Decoded),
			logging.Int("sampled", stats.Sampled),
			logging.Int("blurry", stats.Blurry),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var classifications []motion.Classification
	err = stageexec.Run(ctx, r.logger, "estimate", func(ctx context.Context, logger *slog.Logger) error {
		var err error
		classifications, err = r.classify(ctx, frames, logger)
		if err != nil {
			return err
		}
		result.Stats.Pairs = len(classifications)
		for _, c := range classifications {
			if c.IsPan {
				result.Stats.PanPairs++
			}
		}
		logger.Info("pairs classified",
			logging.Int("pairs", result.Stats.Pairs),
			logging.Int("pan_pairs", result.Stats.PanPairs),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var groups []grouping.Group
	err = stageexec.Run(ctx, r.logger, "group", func(ctx context.Context, logger *slog.Logger) error {
		b := grouping.NewBuilder(r.cfg.Grouping.MinGroupLen)
		for i, c := range classifications {
			b.Step(i, c)
		}
		groups = b.Finish()
		result.Stats.Groups = len(groups)
		result.Stats.GroupsDiscarded = b.Discarded()
		logger.Info("groups built",
			logging.Int("groups", len(groups)),
			logging.Int("discarded", b.Discarded()),
			logging.Int("min_group_len", r.cfg.Grouping.MinGroupLen),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(groups) == 0 {
		logger.Info("detection run completed", logging.Int("groups", 0))
		return result, nil
	}

	err = stageexec.Run(ctx, r.logger, "export", func(ctx context.Context, logger *slog.Logger) error {
		exported, err := r.export(ctx, prefix, frames, classifications, groups, logger)
		if err != nil {
			return err
		}
		result.Groups = exported
		result.Stats.Panos = result.PanoCount()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("detection run completed",
		logging.Int("groups", len(result.Groups)),
		logging.Int("panos", result.Stats.Panos),
	)
	return result, nil
}

func (r *Runner) sample(ctx context.Context, path string, logger *slog.Logger) ([]sampler.Frame, sampler.Stats, video.Meta, error) {
	if storage.IsGCSURI(path) {
		dir, err := os.MkdirTemp("", "panscan-video-")
		if err != nil {
			return nil, sampler.Stats{}, video.Meta{}, services.Wrap(services.ErrExternalTool, "sample", "fetch", "create download directory", err)
		}
		defer os.RemoveAll(dir)
		local, err := storage.FetchObject(ctx, path, dir)
		if err != nil {
			return nil, sampler.Stats{}, video.Meta{}, err
		}
		logger.Info("video downloaded", logging.String("video_uri", path), logging.String("local_path", local))
		path = local
	}
	src, err := r.open(ctx, r.cfg, path)
	if err != nil {
		return nil, sampler.Stats{}, video.Meta{}, err
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			logging.WarnWithContext(logger, "closing video source failed", "decoder_close",
				logging.Error(closeErr),
				logging.String(logging.FieldImpact, "none; all frames were already read"),
			)
		}
	}()
	meta := src.Meta()
	logger.Info("video opened",
		logging.Int("total_frames", meta.TotalFrames),
		logging.Float64("fps", meta.FPS),
		logging.Int("width", meta.Width),
		logging.Int("height", meta.Height),
	)
	frames, stats, err := sampler.Sample(ctx, src, sampler.OptionsFromConfig(r.cfg), logger)
	if err != nil {
		return nil, stats, meta, err
	}
	return frames, stats, meta, nil
}

// classify describes every sampled frame once, then estimates each adjacent
// pair. Both passes run on a bounded errgroup writing by index, so the output
// matches a sequential run.
func (r *Runner) classify(ctx context.Context, frames []sampler.Frame, logger *slog.Logger) ([]motion.Classification, error) {
	if len(frames) < 2 {
		return nil, nil
	}
	workers := r.cfg.Workers(runtime.GOMAXPROCS(0))

	sets := make([]features.Set, len(frames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range frames {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sets[i] = r.estimator.Describe(frames[i].Image)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]motion.Result, len(frames)-1)
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.estimator.EstimateSets(sets[i], sets[i+1])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	classifications := make([]motion.Classification, len(results))
	for i, res := range results {
		c := r.thresholds.Classify(res)
		classifications[i] = c
		attrs := []logging.Attr{
			logging.Int("pair", i),
			logging.Int("from_frame", frames[i].Index),
			logging.Int("to_frame", frames[i+1].Index),
			logging.Bool("is_pan", c.IsPan),
			logging.Float64("score", c.Score),
			logging.String("reason", r.thresholds.Reason(c)),
		}
		if s, ok := res.Summary(); ok {
			attrs = append(attrs,
				logging.Float64("median_u", s.MedianU),
				logging.Float64("median_v", s.MedianV),
				logging.Float64("inlier_ratio", s.InlierRatio),
				logging.Float64("residual", s.Residual),
				logging.Float64("scale", s.Scale),
			)
		}
		logger.Debug("pair classified", logging.Args(attrs...)...)
	}
	return classifications, nil
}

func (r *Runner) export(ctx context.Context, prefix string, frames []sampler.Frame, classifications []motion.Classification, groups []grouping.Group, logger *slog.Logger) ([]GroupResult, error) {
	output, err := storage.OpenOutput(ctx, prefix, r.cfg.Export.JPEGQuality)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := output.Close(); closeErr != nil {
			logger.Debug("release output prefix failed", logging.Error(closeErr))
		}
	}()
	store := output.Store

	out := make([]GroupResult, 0, len(groups))
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		groupCtx := services.WithGroupID(ctx, group.ID)
		res, err := r.exportGroup(groupCtx, store, frames, classifications, group, logging.WithContext(groupCtx, logger))
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (r *Runner) exportGroup(ctx context.Context, store storage.FrameStore, frames []sampler.Frame, classifications []motion.Classification, group grouping.Group, logger *slog.Logger) (GroupResult, error) {
	selected := grouping.SelectExport(group.Positions, r.cfg.Export.Step, r.cfg.Export.ExportAllInGroup)
	res := GroupResult{
		ID:             group.ID,
		Direction:      group.Direction,
		SampledIndices: group.Positions,
		FrameIndices:   make([]int, len(selected)),
		FrameURIs:      make([]string, len(selected)),
	}
	images := make([]image.Image, len(selected))
	for k, pos := range selected {
		res.FrameIndices[k] = frames[pos].Index
		images[k] = frames[pos].Image
	}

	res.OverlapEstimate = grouping.OverlapEstimate(selected, meanAbsU(classifications, group), frameWidth(images))
	selection := []logging.Attr{
		logging.String("direction", string(group.Direction)),
		logging.Int("sampled", len(group.Positions)),
		logging.Int("exported", len(selected)),
		logging.Float64("overlap_estimate", res.OverlapEstimate),
		logging.Float64("overlap_target", r.cfg.Export.OverlapTarget),
	}
	if res.OverlapEstimate < r.cfg.Export.OverlapTarget {
		logging.WarnWithContext(logger, "exported frames overlap less than the target", "overlap_below_target",
			append(selection,
				logging.String(logging.FieldErrorHint, "lower export_step or set export_all_in_group"),
				logging.String(logging.FieldImpact, "frames are exported; a panorama may fail to register"),
			)...,
		)
	} else {
		logger.Info("group export selected", logging.Args(selection...)...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportWorkers)
	for k := range selected {
		g.Go(func() error {
			uri, err := store.Put(gctx, images[k], storage.FrameKey(group.ID, res.FrameIndices[k]))
			if err != nil {
				return err
			}
			res.FrameURIs[k] = uri
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return GroupResult{}, err
	}

	if !r.cfg.Stitch.Enabled {
		return res, nil
	}
	if len(images) < 2 {
		res.Stitch = &StitchReport{Status: stitch.StatusNeedMoreImages.String()}
		logging.Decision(logger, "panorama skipped", "panorama", "skipped", "fewer than two exported frames")
		return res, nil
	}
	pano, status, err := r.stitcher.Stitch(ctx, images, stitch.WarpConfig{
		Warper: r.cfg.Stitch.Warper,
		Scale:  r.cfg.Stitch.WarperScale,
	})
	if err != nil {
		return GroupResult{}, err
	}
	res.Stitch = &StitchReport{Status: status.String()}
	if status != stitch.StatusOK || pano == nil {
		logging.Decision(logger, "panorama rejected", "panorama", "rejected", "stitch "+status.String())
		return res, nil
	}
	verdict := r.gate.Check(pano)
	res.Stitch.Verdict = &verdict
	if !verdict.Accepted {
		logging.Decision(logger, "panorama rejected", "panorama", "rejected", verdict.Reason)
		return res, nil
	}
	uri, err := store.Put(ctx, pano, storage.PanoKey(group.ID))
	if err != nil {
		return GroupResult{}, err
	}
	res.PanoURI = &uri
	logging.Decision(logger, "panorama kept", "panorama", "kept", fmt.Sprintf("aspect %.2f", verdict.Aspect),
		logging.String("pano_uri", uri))
	return res, nil
}

// meanAbsU averages |median_u| over the pairs inside a group.
func meanAbsU(classifications []motion.Classification, group grouping.Group) float64 {
	var sum float64
	n := 0
	for _, pos := range group.Positions[:len(group.Positions)-1] {
		if s, ok := classifications[pos].Motion.Summary(); ok {
			sum += math.Abs(s.MedianU)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func frameWidth(images []image.Image) int {
	if len(images) == 0 {
		return 0
	}
	return images[0].Bounds().Dx()
}
