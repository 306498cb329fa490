package features

import (
	"image"
	"math"

	"panscan/internal/imaging"
)

const (
	histCells   = 4
	histCellPx  = 4
	histBins    = 8
	histDims    = histCells * histCells * histBins
	histClip    = 0.2
	histWindowR = histCells * histCellPx / 2
)

// gradientHistogram describes oriented keypoints with Lowe-style gradient
// orientation histograms over a rotated 16x16 window.
type gradientHistogram struct {
	maxFeatures int
}

func newGradientHistogram(maxFeatures int) *gradientHistogram {
	return &gradientHistogram{maxFeatures: maxFeatures}
}

func (d *gradientHistogram) Detect(g *image.Gray) Set {
	g = imaging.ToGray(g)
	kps := detectCorners(g, d.maxFeatures)
	set := Set{Norm: NormL2}
	if len(kps) == 0 {
		return set
	}
	smooth := imaging.GaussianBlur(g, 5, 1.6)
	set.Keypoints = kps
	set.Float = make([][]float32, len(kps))
	for i, kp := range kps {
		set.Float[i] = orientationHistogram(smooth, kp)
	}
	return set
}

func orientationHistogram(g *image.Gray, kp Keypoint) []float32 {
	var hist [histDims]float64
	sin, cos := math.Sincos(kp.Angle)
	cx, cy := int(kp.X), int(kp.Y)
	px := func(x, y int) float64 { return float64(g.Pix[y*g.Stride+x]) }
	sigma := float64(histWindowR)

	for v := -histWindowR; v < histWindowR; v++ {
		for u := -histWindowR; u < histWindowR; u++ {
			fu, fv := float64(u)+0.5, float64(v)+0.5
			x := cx + int(math.Round(cos*fu-sin*fv))
			y := cy + int(math.Round(sin*fu+cos*fv))
			dx := px(x+1, y) - px(x-1, y)
			dy := px(x, y+1) - px(x, y-1)
			mag := math.Hypot(dx, dy)
			if mag == 0 {
				continue
			}
			theta := math.Atan2(dy, dx) - kp.Angle
			for theta < 0 {
				theta += 2 * math.Pi
			}
			for theta >= 2*math.Pi {
				theta -= 2 * math.Pi
			}
			bin := int(theta / (2 * math.Pi) * histBins)
			if bin >= histBins {
				bin = histBins - 1
			}
			weight := math.Exp(-(fu*fu + fv*fv) / (2 * sigma * sigma))
			cell := ((v+histWindowR)/histCellPx)*histCells + (u+histWindowR)/histCellPx
			hist[cell*histBins+bin] += weight * mag
		}
	}

	normalize := func() {
		var sum float64
		for _, h := range hist {
			sum += h * h
		}
		if sum == 0 {
			return
		}
		n := math.Sqrt(sum)
		for i := range hist {
			hist[i] /= n
		}
	}
	normalize()
	for i := range hist {
		hist[i] = math.Min(hist[i], histClip)
	}
	normalize()

	out := make([]float32, histDims)
	for i, h := range hist {
		out[i] = float32(h)
	}
	return out
}
