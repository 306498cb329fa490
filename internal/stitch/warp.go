package stitch

import (
	"image"
	"image/color"
	"math"

	"panscan/internal/config"
)

// projection maps between image-plane offsets and surface offsets, both
// measured from the image centre.
type projection interface {
	// forward maps a plane displacement to a surface displacement.
	forward(x, y float64) (float64, float64)
	// inverse maps a surface point back to the plane.
	inverse(x, y float64) (float64, float64, bool)
}

type planar struct{}

func (planar) forward(x, y float64) (float64, float64) { return x, y }

func (planar) inverse(x, y float64) (float64, float64, bool) { return x, y, true }

type cylindrical struct{ f float64 }

func (c cylindrical) forward(x, y float64) (float64, float64) {
	theta := math.Atan2(x, c.f)
	return c.f * theta, c.f * y / math.Hypot(x, c.f)
}

func (c cylindrical) inverse(x, y float64) (float64, float64, bool) {
	theta := x / c.f
	if math.Abs(theta) >= math.Pi/2 {
		return 0, 0, false
	}
	return c.f * math.Tan(theta), y / math.Cos(theta), true
}

type spherical struct{ f float64 }

func (s spherical) forward(x, y float64) (float64, float64) {
	theta := math.Atan2(x, s.f)
	phi := math.Atan2(y, math.Hypot(x, s.f))
	return s.f * theta, s.f * phi
}

func (s spherical) inverse(x, y float64) (float64, float64, bool) {
	theta, phi := x/s.f, y/s.f
	if math.Abs(theta) >= math.Pi/2 || math.Abs(phi) >= math.Pi/2 {
		return 0, 0, false
	}
	return s.f * math.Tan(theta), s.f * math.Tan(phi) / math.Cos(theta), true
}

// newProjection builds the projection for an image of the given width. The
// focal length is width times the warp scale, roughly a 53 degree field of
// view at scale 1.
func newProjection(warp WarpConfig, width int) projection {
	scale := warp.Scale
	if scale <= 0 {
		scale = 1
	}
	f := float64(width) * scale
	switch warp.Warper {
	case config.WarperCylindrical:
		return cylindrical{f: f}
	case config.WarperSpherical:
		return spherical{f: f}
	default:
		return planar{}
	}
}

// warpImage resamples img onto the projection surface. Pixels that fall
// outside the source are left transparent.
func warpImage(img image.Image, p projection) *image.RGBA {
	if _, ok := p.(planar); ok {
		return toRGBA(img)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cx, cy := float64(w-1)/2, float64(h-1)/2
	src := toRGBA(img)
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy, ok := p.inverse(float64(x)-cx, float64(y)-cy)
			if !ok {
				continue
			}
			if c, ok := bilinear(src, sx+cx, sy+cy); ok {
				out.SetRGBA(x, y, c)
			}
		}
	}
	return out
}

func bilinear(img *image.RGBA, x, y float64) (color.RGBA, bool) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if x < 0 || y < 0 || x > float64(w-1) || y > float64(h-1) {
		return color.RGBA{}, false
	}
	x0, y0 := int(x), int(y)
	x1, y1 := min(x0+1, w-1), min(y0+1, h-1)
	fx, fy := x-float64(x0), y-float64(y0)
	at := func(px, py, c int) float64 { return float64(img.Pix[py*img.Stride+px*4+c]) }
	var rgba [4]uint8
	for c := 0; c < 4; c++ {
		top := at(x0, y0, c)*(1-fx) + at(x1, y0, c)*fx
		bottom := at(x0, y1, c)*(1-fx) + at(x1, y1, c)*fx
		rgba[c] = uint8(math.Round(top*(1-fy) + bottom*fy))
	}
	return color.RGBA{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}, true
}
