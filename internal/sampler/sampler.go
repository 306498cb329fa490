// Package sampler decodes a video sequentially and keeps every n-th frame that
// is sharp enough for feature matching.
package sampler

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"

	"panscan/internal/config"
	"panscan/internal/imaging"
	"panscan/internal/logging"
	"panscan/internal/services"
	"panscan/internal/video"
)

// Frame is a kept frame and its original index in the video.
type Frame struct {
	Index     int
	Image     image.Image
	Sharpness float64
}

// Stats counts what happened to decoded frames.
type Stats struct {
	Decoded int `json:"decoded"`
	Sampled int `json:"sampled"`
	Blurry  int `json:"blurry"`
}

// Options controls frame selection.
type Options struct {
	Every    int
	SharpThr float64
}

// OptionsFromConfig reads the [sampling] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{Every: cfg.Sampling.SampleEvery, SharpThr: cfg.Sampling.SharpThr}
}

// Keep reports whether frame index with the given sharpness is sampled.
func (o Options) Keep(index int, sharpness float64) bool {
	return index%o.Every == 0 && sharpness > o.SharpThr
}

// Sample reads src to the end. A frame at index f is kept when f is a multiple
// of Every and its Laplacian variance exceeds SharpThr. Frames that are not on
// the stride are not converted at all.
//
// A decode error before the first frame is returned. A decode error after
// frames were produced ends sampling early with a warning, keeping what was
// read. All kept frames stay in memory.
func Sample(ctx context.Context, src video.Source, opts Options, logger *slog.Logger) ([]Frame, Stats, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Every < 1 {
		return nil, Stats{}, services.Wrap(services.ErrValidation, "sample", "stride", "sample_every must be at least 1", nil)
	}
	meta := src.Meta()
	progress := logging.NewProgressSampler(10)

	var (
		frames []Frame
		stats  Stats
	)
	for index := 0; ; index++ {
		img, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, stats, ctxErr
			}
			if stats.Decoded == 0 {
				return nil, stats, err
			}
			logging.WarnWithContext(logger, "decoding stopped early", "decode_truncated",
				logging.Int("decoded", stats.Decoded),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the video file for corruption"),
				logging.String(logging.FieldImpact, "frames after the failure are not analysed"),
			)
			break
		}
		stats.Decoded++

		if percent := logging.Percent(stats.Decoded, meta.TotalFrames); progress.ShouldLog(percent, "decode") {
			logger.Debug("decode progress",
				logging.Int("decoded", stats.Decoded),
				logging.Int("total", meta.TotalFrames),
				logging.Float64("percent", percent),
			)
		}

		if index%opts.Every != 0 {
			continue
		}
		sharpness := imaging.LaplacianVariance(imaging.ToGray(img))
		if !opts.Keep(index, sharpness) {
			stats.Blurry++
			logger.Debug("frame dropped", logging.Int("frame", index), logging.Float64("sharpness", sharpness))
			continue
		}
		frames = append(frames, Frame{Index: index, Image: img, Sharpness: sharpness})
		stats.Sampled++
	}
	return frames, stats, nil
}
