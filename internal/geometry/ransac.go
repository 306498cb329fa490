package geometry

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
)

// ErrNoModel reports that RANSAC found no acceptable homography.
var ErrNoModel = errors.New("no homography consensus")

// RANSACOptions tunes FindHomography.
type RANSACOptions struct {
	// Threshold is the maximum reprojection error, in pixels, of an inlier.
	Threshold  float64
	MaxIters   int
	Confidence float64
	// Seed fixes the sampling sequence so identical inputs give identical fits.
	Seed uint64
}

// DefaultRANSACOptions mirrors the usual OpenCV settings.
func DefaultRANSACOptions() RANSACOptions {
	return RANSACOptions{Threshold: 3.0, MaxIters: 2000, Confidence: 0.995, Seed: 1}
}

// solveRANSAC fits a model to validated input. Builds with the gocv tag swap
// in cv::findHomography.
var solveRANSAC = ransac

// FindHomography robustly fits src→dst and returns the model with its inlier
// mask.
func FindHomography(src, dst []Point, opts RANSACOptions) (Homography, []bool, error) {
	if len(src) != len(dst) {
		return Homography{}, nil, errors.New("point sets differ in length")
	}
	if len(src) < 4 {
		return Homography{}, nil, ErrDegenerate
	}
	if opts.MaxIters <= 0 {
		opts.MaxIters = DefaultRANSACOptions().MaxIters
	}
	if opts.Confidence <= 0 || opts.Confidence >= 1 {
		opts.Confidence = DefaultRANSACOptions().Confidence
	}
	return solveRANSAC(src, dst, opts)
}

// ransac keeps the best minimal-sample model and refits it on all of its
// inliers; the refit is kept only if it does not lose support.
func ransac(src, dst []Point, opts RANSACOptions) (Homography, []bool, error) {
	n := len(src)

	rng := rand.New(rand.NewPCG(opts.Seed, uint64(n)))
	var (
		best      Homography
		bestMask  []bool
		bestCount int
		bestErr   = math.Inf(1)
	)
	mask := make([]bool, n)
	maxIters := opts.MaxIters
	var sample [4]int
	var s, d [4]Point

	for iter := 0; iter < maxIters; iter++ {
		if !drawSample(rng, n, &sample, src) {
			continue
		}
		for i, idx := range sample {
			s[i], d[i] = src[idx], dst[idx]
		}
		h, err := FitHomography(s[:], d[:])
		if err != nil {
			continue
		}
		count, sumErr := scoreModel(h, src, dst, opts.Threshold, mask)
		if count > bestCount || (count == bestCount && count > 0 && sumErr < bestErr) {
			best, bestCount, bestErr = h, count, sumErr
			bestMask = append(bestMask[:0], mask...)
			maxIters = min(maxIters, adaptiveIterations(float64(count)/float64(n), opts.Confidence, opts.MaxIters))
		}
	}
	if bestCount < 4 {
		return Homography{}, nil, ErrNoModel
	}

	inSrc := make([]Point, 0, bestCount)
	inDst := make([]Point, 0, bestCount)
	for i, in := range bestMask {
		if in {
			inSrc = append(inSrc, src[i])
			inDst = append(inDst, dst[i])
		}
	}
	if refined, err := FitHomography(inSrc, inDst); err == nil {
		count, _ := scoreModel(refined, src, dst, opts.Threshold, mask)
		if count >= bestCount {
			return refined, append([]bool(nil), mask...), nil
		}
	}
	return best, bestMask, nil
}

// drawSample picks four distinct indices whose source points are not
// collinear in any triple.
func drawSample(rng *rand.Rand, n int, sample *[4]int, src []Point) bool {
	for i := 0; i < 4; {
		idx := rng.IntN(n)
		if slices.Contains(sample[:i], idx) {
			continue
		}
		sample[i] = idx
		i++
	}
	for a := 0; a < 4; a++ {
		for b := a + 1; b < 4; b++ {
			for c := b + 1; c < 4; c++ {
				if collinear(src[sample[a]], src[sample[b]], src[sample[c]]) {
					return false
				}
			}
		}
	}
	return true
}

func collinear(a, b, c Point) bool {
	area := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	return math.Abs(area) < 1e-6
}

func scoreModel(h Homography, src, dst []Point, threshold float64, mask []bool) (int, float64) {
	count := 0
	var sum float64
	for i := range src {
		e := h.ReprojectionError(src[i], dst[i])
		mask[i] = e <= threshold
		if mask[i] {
			count++
			sum += e
		}
	}
	return count, sum
}

// adaptiveIterations is the number of draws needed to see an all-inlier
// sample with the requested confidence.
func adaptiveIterations(inlierRatio, confidence float64, limit int) int {
	if inlierRatio <= 0 {
		return limit
	}
	p := math.Pow(inlierRatio, 4)
	if p >= 1 {
		return 1
	}
	num := math.Log(1 - confidence)
	den := math.Log(1 - p)
	if den >= 0 || math.IsInf(den, -1) {
		return limit
	}
	iters := int(math.Ceil(num / den))
	if iters < 1 {
		return 1
	}
	return min(iters, limit)
}
