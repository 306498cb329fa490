package stitch

import (
	"context"
	"image"
	"log/slog"

	"panscan/internal/motion"
)

// Status is the outcome of a stitch attempt.
type Status int

const (
	StatusOK Status = iota
	StatusNeedMoreImages
	StatusRegistrationFailed
	StatusCanvasTooLarge
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNeedMoreImages:
		return "need_more_images"
	case StatusRegistrationFailed:
		return "registration_failed"
	case StatusCanvasTooLarge:
		return "canvas_too_large"
	default:
		return "unknown"
	}
}

// WarpConfig selects the projection surface and its focal scale.
type WarpConfig struct {
	Warper string
	Scale  float64
}

// Stitcher combines ordered, overlapping images into one. A non-OK status
// comes with a nil image; err is reserved for cancellation.
type Stitcher interface {
	Stitch(ctx context.Context, images []image.Image, warp WarpConfig) (image.Image, Status, error)
}

// newDefault builds the stitcher used by the pipeline. Builds with the gocv
// tag swap in OpenCV's panorama stitcher.
var newDefault = func(est *motion.Estimator, logger *slog.Logger) Stitcher {
	return NewCompositor(est, logger)
}

// NewDefault returns the build's preferred Stitcher.
func NewDefault(est *motion.Estimator, logger *slog.Logger) Stitcher {
	return newDefault(est, logger)
}
