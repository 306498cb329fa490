package features

import (
	"image"
	"math"
)

const (
	fastThreshold = 20
	fastArc       = 9
	harrisBlock   = 7
	harrisK       = 0.04
	// keypointBorder keeps every sampling pattern inside the image.
	keypointBorder = 20
	patchRadius    = 15
)

// circle lists the 16 Bresenham offsets of radius 3 in clockwise order.
var circle = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1}, {3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1}, {-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// detectCorners finds FAST-9 corners with 3x3 non-maximum suppression, ranks
// them by Harris response, and orients them by intensity centroid.
func detectCorners(g *image.Gray, maxFeatures int) []Keypoint {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w <= 2*keypointBorder || h <= 2*keypointBorder {
		return nil
	}
	scores := make([]int32, w*h)
	for y := keypointBorder; y < h-keypointBorder; y++ {
		for x := keypointBorder; x < w-keypointBorder; x++ {
			scores[y*w+x] = fastScore(g, x, y)
		}
	}

	ix, iy := sobel(g)
	var kps []Keypoint
	for y := keypointBorder; y < h-keypointBorder; y++ {
		for x := keypointBorder; x < w-keypointBorder; x++ {
			s := scores[y*w+x]
			if s == 0 || !localMax(scores, w, x, y, s) {
				continue
			}
			kps = append(kps, Keypoint{
				X:        float64(x),
				Y:        float64(y),
				Response: harrisResponse(ix, iy, w, x, y),
			})
		}
	}
	kps = retainBest(kps, maxFeatures)
	for i := range kps {
		kps[i].Angle = centroidAngle(g, int(kps[i].X), int(kps[i].Y))
	}
	return kps
}

// fastScore returns zero when (x, y) is not a FAST corner, otherwise the sum
// of absolute differences beyond the threshold over the circle.
func fastScore(g *image.Gray, x, y int) int32 {
	p := int32(g.Pix[y*g.Stride+x])
	var ring [16]int32
	for i, off := range circle {
		ring[i] = int32(g.Pix[(y+off[1])*g.Stride+x+off[0]])
	}

	// A 9-long arc always covers two of the four compass points.
	brightCompass, darkCompass := 0, 0
	for _, i := range [4]int{0, 4, 8, 12} {
		if ring[i] > p+fastThreshold {
			brightCompass++
		} else if ring[i] < p-fastThreshold {
			darkCompass++
		}
	}
	if brightCompass < 2 && darkCompass < 2 {
		return 0
	}

	if !hasArc(ring, func(v int32) bool { return v > p+fastThreshold }) &&
		!hasArc(ring, func(v int32) bool { return v < p-fastThreshold }) {
		return 0
	}
	var score int32
	for _, v := range ring {
		d := v - p
		if d < 0 {
			d = -d
		}
		if d > fastThreshold {
			score += d - fastThreshold
		}
	}
	return score
}

func hasArc(ring [16]int32, pass func(int32) bool) bool {
	run := 0
	for i := 0; i < 16+fastArc-1; i++ {
		if pass(ring[i%16]) {
			run++
			if run >= fastArc {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// localMax keeps a corner when no 8-neighbour scores higher. Equal scores are
// broken in raster order so plateaus yield one keypoint.
func localMax(scores []int32, w, x, y int, s int32) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := scores[(y+dy)*w+x+dx]
			if n > s {
				return false
			}
			if n == s && (dy < 0 || (dy == 0 && dx < 0)) {
				return false
			}
		}
	}
	return true
}

func sobel(g *image.Gray) (ix, iy []float32) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	ix = make([]float32, w*h)
	iy = make([]float32, w*h)
	px := func(x, y int) float32 { return float32(g.Pix[y*g.Stride+x]) }
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			ix[y*w+x] = (px(x+1, y-1) + 2*px(x+1, y) + px(x+1, y+1)) - (px(x-1, y-1) + 2*px(x-1, y) + px(x-1, y+1))
			iy[y*w+x] = (px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1)) - (px(x-1, y-1) + 2*px(x, y-1) + px(x+1, y-1))
		}
	}
	return ix, iy
}

func harrisResponse(ix, iy []float32, w, x, y int) float64 {
	r := harrisBlock / 2
	var a, b, c float64
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			i := (y+dy)*w + x + dx
			gx, gy := float64(ix[i]), float64(iy[i])
			a += gx * gx
			b += gy * gy
			c += gx * gy
		}
	}
	return a*b - c*c - harrisK*(a+b)*(a+b)
}

// centroidAngle returns the direction from the keypoint to the intensity
// centroid of a circular patch.
func centroidAngle(g *image.Gray, x, y int) float64 {
	var m01, m10 float64
	for dy := -patchRadius; dy <= patchRadius; dy++ {
		span := int(math.Sqrt(float64(patchRadius*patchRadius - dy*dy)))
		row := (y + dy) * g.Stride
		for dx := -span; dx <= span; dx++ {
			v := float64(g.Pix[row+x+dx])
			m10 += float64(dx) * v
			m01 += float64(dy) * v
		}
	}
	return math.Atan2(m01, m10)
}
