//go:build gocv

package video

import (
	"context"
	"image"
	"io"

	"gocv.io/x/gocv"

	"panscan/internal/config"
	"panscan/internal/services"
)

func init() {
	backends[config.DecoderOpenCV] = openOpenCV
}

// OpenCVSource decodes through OpenCV's VideoCapture.
type OpenCVSource struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
	meta    Meta
}

func openOpenCV(_ context.Context, _ *config.Config, path string) (Source, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "sample", "open video", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, services.Wrap(services.ErrNotFound, "sample", "open video", path, nil)
	}
	meta := Meta{
		TotalFrames: int(capture.Get(gocv.VideoCaptureFrameCount)),
		FPS:         capture.Get(gocv.VideoCaptureFPS),
		Width:       int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height:      int(capture.Get(gocv.VideoCaptureFrameHeight)),
	}
	return &OpenCVSource{capture: capture, frame: gocv.NewMat(), meta: meta}, nil
}

// Meta returns the capture properties reported by OpenCV.
func (s *OpenCVSource) Meta() Meta { return s.meta }

// Next decodes the next frame.
func (s *OpenCVSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		return nil, io.EOF
	}
	img, err := s.frame.ToImage()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "sample", "decode", "convert frame", err)
	}
	return img, nil
}

// Close releases the capture and its frame buffer.
func (s *OpenCVSource) Close() error {
	s.frame.Close()
	return s.capture.Close()
}
