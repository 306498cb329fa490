package motion

import (
	"image"
	"sort"

	"gonum.org/v1/gonum/stat"

	"panscan/internal/config"
	"panscan/internal/features"
	"panscan/internal/geometry"
	"panscan/internal/imaging"
)

// Options configures an Estimator.
type Options struct {
	Feature     string
	MaxFeatures int
	RatioTest   float64
	MinMatches  int
	MinInliers  int
	RANSAC      geometry.RANSACOptions
}

// OptionsFromConfig reads the [motion] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Feature:     cfg.Motion.Feature,
		MaxFeatures: cfg.Motion.MaxFeatures,
		RatioTest:   cfg.Motion.RatioTest,
		MinMatches:  cfg.Motion.MinMatches,
		MinInliers:  cfg.Motion.MinInliers,
		RANSAC: geometry.RANSACOptions{
			Threshold:  cfg.Motion.RansacThreshold,
			MaxIters:   cfg.Motion.RansacMaxIters,
			Confidence: cfg.Motion.RansacConfidence,
			Seed:       1,
		},
	}
}

// Estimator measures pairwise motion. It holds no per-call state and is safe
// for concurrent use.
type Estimator struct {
	detector features.Detector
	opts     Options
}

// NewEstimator builds an estimator for the configured feature family.
func NewEstimator(opts Options) (*Estimator, error) {
	detector, err := features.New(opts.Feature, opts.MaxFeatures)
	if err != nil {
		return nil, err
	}
	return &Estimator{detector: detector, opts: opts}, nil
}

// Describe detects and describes the features of one frame. Callers that
// compare each frame against two neighbours can describe once and reuse it.
func (e *Estimator) Describe(img image.Image) features.Set {
	return e.detector.Detect(imaging.ToGray(img))
}

// Estimate measures the motion from a to b.
func (e *Estimator) Estimate(a, b image.Image) Result {
	return e.EstimateSets(e.Describe(a), e.Describe(b))
}

// EstimateSets measures motion between two described frames.
func (e *Estimator) EstimateSets(a, b features.Set) Result {
	if a.Empty() || b.Empty() {
		return Absent(StatusNoFeatures)
	}
	matches := features.MatchRatio(a, b, e.opts.RatioTest)
	if len(matches) < e.opts.MinMatches {
		return Absent(StatusTooFewMatches)
	}

	src := make([]geometry.Point, len(matches))
	dst := make([]geometry.Point, len(matches))
	for i, m := range matches {
		qa, tb := a.Keypoints[m.Query], b.Keypoints[m.Train]
		src[i] = geometry.Point{X: qa.X, Y: qa.Y}
		dst[i] = geometry.Point{X: tb.X, Y: tb.Y}
	}
	h, mask, err := geometry.FindHomography(src, dst, e.opts.RANSAC)
	if err != nil {
		return Absent(StatusNoHomography)
	}

	var du, dv, residuals []float64
	for i, in := range mask {
		if !in {
			continue
		}
		du = append(du, dst[i].X-src[i].X)
		dv = append(dv, dst[i].Y-src[i].Y)
		residuals = append(residuals, h.ReprojectionError(src[i], dst[i]))
	}
	if len(du) < e.opts.MinInliers {
		return Absent(StatusTooFewInliers)
	}

	return Measured(Summary{
		Homography:  h,
		InlierRatio: float64(len(du)) / float64(len(matches)),
		MedianU:     median(du),
		MedianV:     median(dv),
		Residual:    stat.Mean(residuals, nil),
		Scale:       h.LinearScale(),
		Matches:     len(matches),
		Inliers:     len(du),
	})
}

// median averages the two middle values of an even-length sample.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
