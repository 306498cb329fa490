package motion

import (
	"math"

	"panscan/internal/config"
)

// Direction is the horizontal sense of a pan.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
)

// DirectionOf maps a summary's median horizontal displacement to a direction.
// Zero displacement counts as right.
func DirectionOf(s Summary) Direction {
	if s.MedianU >= 0 {
		return Right
	}
	return Left
}

// Thresholds are the pan decision limits.
type Thresholds struct {
	TauInliers  float64
	TauV        float64
	TauUMin     float64
	TauUMax     float64
	TauScale    float64
	TauParallax float64
}

// ThresholdsFromConfig reads the [classifier] section.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	c := cfg.Classifier
	return Thresholds{
		TauInliers:  c.TauInliers,
		TauV:        c.TauV,
		TauUMin:     c.TauUMin,
		TauUMax:     c.TauUMax,
		TauScale:    c.TauScale,
		TauParallax: c.TauParallax,
	}
}

// Classification is the verdict for one adjacent frame pair.
type Classification struct {
	IsPan     bool
	Score     float64
	Direction Direction
	Motion    Result
}

// Classify decides whether r is a horizontal pan step. An absent summary is
// never a pan and scores zero.
func (t Thresholds) Classify(r Result) Classification {
	s, ok := r.Summary()
	if !ok {
		return Classification{Motion: r}
	}
	absU := math.Abs(s.MedianU)
	absV := math.Abs(s.MedianV)
	scaleDrift := math.Abs(s.Scale - 1)

	isPan := s.InlierRatio >= t.TauInliers &&
		absV <= t.TauV &&
		absU >= t.TauUMin && absU <= t.TauUMax &&
		scaleDrift <= t.TauScale &&
		s.Residual <= t.TauParallax

	return Classification{
		IsPan:     isPan,
		Score:     t.score(s),
		Direction: DirectionOf(s),
		Motion:    r,
	}
}

func (t Thresholds) score(s Summary) float64 {
	return 1.5*s.InlierRatio +
		0.6*(1-math.Min(math.Abs(s.MedianV)/t.TauV, 1)) +
		0.4*(1-math.Min(math.Abs(s.Scale-1)/t.TauScale, 1)) +
		0.6*(1-math.Min(s.Residual/t.TauParallax, 1))
}

// Reason names the first failed criterion, or "pan" when all pass. It is
// meant for debug logging.
func (t Thresholds) Reason(c Classification) string {
	s, ok := c.Motion.Summary()
	switch {
	case !ok:
		return c.Motion.Status.String()
	case s.InlierRatio < t.TauInliers:
		return "low_inlier_ratio"
	case math.Abs(s.MedianV) > t.TauV:
		return "vertical_motion"
	case math.Abs(s.MedianU) < t.TauUMin:
		return "static"
	case math.Abs(s.MedianU) > t.TauUMax:
		return "too_fast"
	case math.Abs(s.Scale-1) > t.TauScale:
		return "scale_drift"
	case s.Residual > t.TauParallax:
		return "parallax"
	default:
		return "pan"
	}
}
