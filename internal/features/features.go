package features

import (
	"fmt"
	"image"
	"sort"
	"strings"
)

// Keypoint is a detected interest point in pixel coordinates.
type Keypoint struct {
	X, Y     float64
	Response float64
	// Angle is the patch orientation in radians.
	Angle float64
}

// Norm selects the descriptor distance.
type Norm int

const (
	NormHamming Norm = iota
	NormL2
)

// Set holds the keypoints of one image and their descriptors. Exactly one of
// Binary or Float is populated, matching Norm.
type Set struct {
	Keypoints []Keypoint
	Norm      Norm
	Binary    [][4]uint64
	Float     [][]float32
}

// Len returns the number of described keypoints.
func (s Set) Len() int {
	if s.Norm == NormHamming {
		return min(len(s.Keypoints), len(s.Binary))
	}
	return min(len(s.Keypoints), len(s.Float))
}

// Empty reports whether the set cannot take part in matching.
func (s Set) Empty() bool {
	return s.Len() == 0
}

// Detector finds and describes keypoints in a grayscale image. Implementations
// must be safe for concurrent use.
type Detector interface {
	Detect(g *image.Gray) Set
}

// Factory constructs a detector bounded to maxFeatures keypoints.
type Factory func(maxFeatures int) Detector

var factories = map[string]Factory{
	"ORB":  func(n int) Detector { return newORB(n) },
	"SIFT": func(n int) Detector { return newGradientHistogram(n) },
}

// Register replaces or adds a detector family.
func Register(family string, f Factory) {
	factories[strings.ToUpper(family)] = f
}

// New returns a detector for the named family.
func New(family string, maxFeatures int) (Detector, error) {
	f, ok := factories[strings.ToUpper(strings.TrimSpace(family))]
	if !ok {
		return nil, fmt.Errorf("unknown feature family %q", family)
	}
	if maxFeatures <= 0 {
		return nil, fmt.Errorf("max features must be positive, got %d", maxFeatures)
	}
	return f(maxFeatures), nil
}

// retainBest keeps the n strongest keypoints. Ties resolve by position so the
// result does not depend on scan order.
func retainBest(kps []Keypoint, n int) []Keypoint {
	sort.Slice(kps, func(i, j int) bool {
		if kps[i].Response != kps[j].Response {
			return kps[i].Response > kps[j].Response
		}
		if kps[i].Y != kps[j].Y {
			return kps[i].Y < kps[j].Y
		}
		return kps[i].X < kps[j].X
	})
	if len(kps) > n {
		kps = kps[:n]
	}
	return kps
}
