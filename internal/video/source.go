package video

import (
	"context"
	"fmt"
	"image"
	"strings"

	"panscan/internal/config"
	"panscan/internal/services"
)

// Meta is the stream metadata reported alongside detection results.
type Meta struct {
	TotalFrames int     `json:"total_frames"`
	FPS         float64 `json:"fps"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

// Source yields decoded frames in original index order.
type Source interface {
	Meta() Meta
	// Next returns the next frame, or io.EOF once the stream is exhausted.
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// Opener opens a video file for decoding.
type Opener func(ctx context.Context, cfg *config.Config, path string) (Source, error)

var backends = map[string]Opener{
	config.DecoderFFmpeg: openFFmpeg,
}

// Open selects the decoder named by cfg.Tools.Decoder.
func Open(ctx context.Context, cfg *config.Config, path string) (Source, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Tools.Decoder))
	open, ok := backends[name]
	if !ok {
		return nil, services.Wrap(services.ErrUnsupported, "sample", "open video",
			fmt.Sprintf("decoder %q is not available in this build", name), nil)
	}
	return open(ctx, cfg, path)
}
