package stitch

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"math"

	"golang.org/x/image/draw"

	"panscan/internal/features"
	"panscan/internal/imaging"
	"panscan/internal/logging"
	"panscan/internal/motion"
)

const (
	defaultRegisterWidth = 640
	defaultMaxCanvas     = 120_000_000
)

// Compositor is a translation-only Stitcher. Consecutive frames are
// registered with the motion estimator on copies no wider than RegisterWidth,
// then projected and laid out left to right by their accumulated offsets.
// Later frames are drawn over earlier ones; uncovered canvas stays black.
type Compositor struct {
	estimator *motion.Estimator
	logger    *slog.Logger

	RegisterWidth   int
	MaxCanvasPixels int
}

// NewCompositor returns a compositor registering frames with est.
func NewCompositor(est *motion.Estimator, logger *slog.Logger) *Compositor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Compositor{
		estimator:       est,
		logger:          logger,
		RegisterWidth:   defaultRegisterWidth,
		MaxCanvasPixels: defaultMaxCanvas,
	}
}

// Stitch implements Stitcher.
func (c *Compositor) Stitch(ctx context.Context, images []image.Image, warp WarpConfig) (image.Image, Status, error) {
	if len(images) < 2 {
		return nil, StatusNeedMoreImages, nil
	}
	size := images[0].Bounds().Size()
	for _, img := range images[1:] {
		if img.Bounds().Size() != size {
			c.logger.Debug("stitch frames differ in size", logging.String("first", size.String()), logging.String("other", img.Bounds().Size().String()))
			return nil, StatusRegistrationFailed, nil
		}
	}

	sets := make([]features.Set, len(images))
	factor := 1.0
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if size.X > c.RegisterWidth && c.RegisterWidth > 0 {
			factor = float64(size.X) / float64(c.RegisterWidth)
			img = imaging.Resize(img, c.RegisterWidth)
		}
		sets[i] = c.estimator.Describe(img)
	}

	proj := newProjection(warp, size.X)
	offsets := make([][2]float64, len(images))
	for i := 1; i < len(images); i++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		r := c.estimator.EstimateSets(sets[i-1], sets[i])
		s, ok := r.Summary()
		if !ok {
			c.logger.Debug("stitch registration failed",
				logging.Int("pair", i-1),
				logging.String("reason", r.Status.String()),
			)
			return nil, StatusRegistrationFailed, nil
		}
		// Content of frame i sits (u, v) from frame i-1, so its origin moves the other way.
		du, dv := proj.forward(s.MedianU*factor, s.MedianV*factor)
		offsets[i] = [2]float64{offsets[i-1][0] - du, offsets[i-1][1] - dv}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, o := range offsets {
		minX, minY = math.Min(minX, o[0]), math.Min(minY, o[1])
		maxX, maxY = math.Max(maxX, o[0]), math.Max(maxY, o[1])
	}
	width := size.X + int(math.Ceil(maxX-minX))
	height := size.Y + int(math.Ceil(maxY-minY))
	if width*height > c.MaxCanvasPixels {
		return nil, StatusCanvasTooLarge, nil
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		warped := warpImage(img, proj)
		at := image.Pt(int(math.Round(offsets[i][0]-minX)), int(math.Round(offsets[i][1]-minY)))
		draw.Draw(canvas, warped.Bounds().Add(at), warped, image.Point{}, draw.Over)
	}
	return canvas, StatusOK, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
