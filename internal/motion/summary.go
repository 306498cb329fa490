package motion

import (
	"panscan/internal/geometry"
)

// Status explains why a Result does or does not carry a Summary.
type Status int

const (
	StatusOK Status = iota
	StatusNoFeatures
	StatusTooFewMatches
	StatusNoHomography
	StatusTooFewInliers
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoFeatures:
		return "no_features"
	case StatusTooFewMatches:
		return "too_few_matches"
	case StatusNoHomography:
		return "no_homography"
	case StatusTooFewInliers:
		return "too_few_inliers"
	default:
		return "unknown"
	}
}

// Summary condenses the inliers of one frame pair.
type Summary struct {
	Homography  geometry.Homography `json:"homography"`
	InlierRatio float64             `json:"inlier_ratio"`
	MedianU     float64             `json:"median_u"`
	MedianV     float64             `json:"median_v"`
	Residual    float64             `json:"residual"`
	Scale       float64             `json:"scale"`
	Matches     int                 `json:"matches"`
	Inliers     int                 `json:"inliers"`
}

// Result is either a measured Summary or the Status explaining its absence.
// The summary is reachable only through Summary(), which reports presence.
type Result struct {
	summary Summary
	Status  Status
}

// Measured wraps a summary.
func Measured(s Summary) Result {
	return Result{summary: s, Status: StatusOK}
}

// Absent records why no summary exists. Passing StatusOK is a programming
// error and yields a no-homography result.
func Absent(status Status) Result {
	if status == StatusOK {
		status = StatusNoHomography
	}
	return Result{Status: status}
}

// Summary returns the measured summary and whether it exists.
func (r Result) Summary() (Summary, bool) {
	if r.Status != StatusOK {
		return Summary{}, false
	}
	return r.summary, true
}
