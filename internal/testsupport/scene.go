package testsupport

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math/rand/v2"

	"panscan/internal/video"
)

// Scene renders a deterministic textured canvas: random coloured rectangles
// over a noisy mid-grey background. It gives feature detectors plenty of
// distinctive corners and has a high Laplacian variance.
func Scene(width, height int, seed uint64) *image.RGBA {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 96, G: 96, B: 96, A: 255}}, image.Point{}, draw.Src)

	rects := width * height / 900
	for i := 0; i < rects; i++ {
		w := 6 + rng.IntN(34)
		h := 6 + rng.IntN(34)
		x := rng.IntN(width)
		y := rng.IntN(height)
		c := color.RGBA{R: uint8(rng.IntN(256)), G: uint8(rng.IntN(256)), B: uint8(rng.IntN(256)), A: 255}
		draw.Draw(img, image.Rect(x, y, x+w, y+h).Intersect(img.Bounds()), &image.Uniform{C: c}, image.Point{}, draw.Src)
	}

	for i := 0; i < len(img.Pix); i += 4 {
		n := rng.IntN(17) - 8
		for c := 0; c < 3; c++ {
			img.Pix[i+c] = clamp(int(img.Pix[i+c]) + n)
		}
	}
	return img
}

// Crop copies the rectangle r of src into a new origin-anchored image.
func Crop(src image.Image, r image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), src, r.Min, draw.Src)
	return out
}

// Shift crops a frame-sized window of scene translated by (dx, dy) from
// (x0, y0). Positive dx moves content right within the window.
func Shift(scene image.Image, x0, y0, w, h, dx, dy int) *image.RGBA {
	return Crop(scene, image.Rect(x0-dx, y0-dy, x0-dx+w, y0-dy+h))
}

// Flat returns a uniform grey frame, which fails any sharpness test.
func Flat(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 128, G: 128, B: 128, A: 255}}, image.Point{}, draw.Src)
	return img
}

func clamp(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}

// PanSource is an in-memory video.Source whose frames are windows sliding
// across a synthetic scene by a fixed step per frame.
type PanSource struct {
	Frames []image.Image
	FPS    float64
	next   int
	closed bool
}

// PanOptions describes a synthetic pan.
type PanOptions struct {
	Count        int
	FrameWidth   int
	FrameHeight  int
	StepX, StepY int
	Seed         uint64
	FPS          float64
	FlatFrames   []int
	StaticFrames int
	ReverseAfter int
}

// NewPanSource renders the frames of a steady pan. Content moves by StepX
// pixels per frame (positive is rightward). When ReverseAfter is positive the
// motion reverses after that many frames. StaticFrames appends frames that
// repeat the last window.
func NewPanSource(opts PanOptions) *PanSource {
	if opts.FPS == 0 {
		opts.FPS = 30
	}
	offsets := make([][2]int, 0, opts.Count+opts.StaticFrames)
	x, y := 0, 0
	for i := 0; i < opts.Count; i++ {
		offsets = append(offsets, [2]int{x, y})
		sx := opts.StepX
		if opts.ReverseAfter > 0 && i+1 >= opts.ReverseAfter {
			sx = -sx
		}
		x += sx
		y += opts.StepY
	}
	last := offsets[len(offsets)-1]
	for i := 0; i < opts.StaticFrames; i++ {
		offsets = append(offsets, last)
	}

	minX, maxX, minY, maxY := 0, 0, 0, 0
	for _, o := range offsets {
		minX, maxX = min(minX, o[0]), max(maxX, o[0])
		minY, maxY = min(minY, o[1]), max(maxY, o[1])
	}
	scene := Scene(opts.FrameWidth+maxX-minX, opts.FrameHeight+maxY-minY, opts.Seed)

	flat := make(map[int]bool, len(opts.FlatFrames))
	for _, f := range opts.FlatFrames {
		flat[f] = true
	}
	src := &PanSource{FPS: opts.FPS}
	for i, o := range offsets {
		if flat[i] {
			src.Frames = append(src.Frames, Flat(opts.FrameWidth, opts.FrameHeight))
			continue
		}
		// Window origin sits at maxX - offset so content drifts by +offset.
		src.Frames = append(src.Frames, Crop(scene, image.Rect(maxX-o[0], maxY-o[1], maxX-o[0]+opts.FrameWidth, maxY-o[1]+opts.FrameHeight)))
	}
	return src
}

// Meta reports the frame count and the dimensions of the first frame.
func (s *PanSource) Meta() video.Meta {
	meta := video.Meta{TotalFrames: len(s.Frames), FPS: s.FPS}
	if len(s.Frames) > 0 {
		b := s.Frames[0].Bounds()
		meta.Width, meta.Height = b.Dx(), b.Dy()
	}
	return meta
}

// Next returns frames in order and io.EOF at the end.
func (s *PanSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed || s.next >= len(s.Frames) {
		return nil, io.EOF
	}
	img := s.Frames[s.next]
	s.next++
	return img, nil
}

// Close marks the source exhausted.
func (s *PanSource) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *PanSource) Closed() bool { return s.closed }
