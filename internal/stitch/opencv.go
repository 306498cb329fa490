//go:build gocv

package stitch

import (
	"context"
	"image"
	"log/slog"

	"gocv.io/x/gocv"

	"panscan/internal/logging"
	"panscan/internal/motion"
)

func init() {
	newDefault = func(_ *motion.Estimator, logger *slog.Logger) Stitcher {
		return NewOpenCV(logger)
	}
}

// OpenCV stitches through cv::Stitcher in panorama mode. OpenCV chooses its
// own warper and scale, so WarpConfig is only logged.
type OpenCV struct {
	logger *slog.Logger
}

// NewOpenCV returns an OpenCV-backed Stitcher.
func NewOpenCV(logger *slog.Logger) *OpenCV {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &OpenCV{logger: logger}
}

// Stitch implements Stitcher.
func (o *OpenCV) Stitch(ctx context.Context, images []image.Image, warp WarpConfig) (image.Image, Status, error) {
	if len(images) < 2 {
		return nil, StatusNeedMoreImages, nil
	}
	mats := make([]gocv.Mat, 0, len(images))
	defer func() {
		for _, m := range mats {
			m.Close()
		}
	}()
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, StatusRegistrationFailed, err
		}
		m, err := gocv.ImageToMatRGB(img)
		if err != nil {
			o.logger.Debug("convert frame for stitching", logging.Error(err))
			return nil, StatusRegistrationFailed, nil
		}
		mats = append(mats, m)
	}

	st := gocv.NewStitcher(gocv.StitcherModePanorama)
	defer st.Close()
	pano := gocv.NewMat()
	defer pano.Close()

	o.logger.Debug("opencv stitch", logging.Int("frames", len(mats)), logging.String("requested_warper", warp.Warper))
	status := st.Stitch(mats, &pano)
	if err := ctx.Err(); err != nil {
		return nil, StatusRegistrationFailed, err
	}
	if s := statusFromOpenCV(status); s != StatusOK {
		return nil, s, nil
	}
	if pano.Empty() {
		return nil, StatusRegistrationFailed, nil
	}
	img, err := pano.ToImage()
	if err != nil {
		o.logger.Debug("convert panorama", logging.Error(err))
		return nil, StatusRegistrationFailed, nil
	}
	return img, StatusOK, nil
}

func statusFromOpenCV(s gocv.StitcherStatus) Status {
	switch s {
	case gocv.StitcherOK:
		return StatusOK
	case gocv.StitcherErrNeedMoreImgs:
		return StatusNeedMoreImages
	default:
		return StatusRegistrationFailed
	}
}
