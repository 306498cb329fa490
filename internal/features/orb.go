package features

import (
	"image"
	"math"
	"math/rand/v2"

	"panscan/internal/imaging"
)

const (
	briefBits   = 256
	briefExtent = 13
)

// briefPattern holds the point pairs of the binary test. It is generated once
// from a fixed seed so descriptors are comparable across runs and processes.
var briefPattern = newBriefPattern()

type briefPair struct {
	x1, y1, x2, y2 float64
}

func newBriefPattern() [briefBits]briefPair {
	rng := rand.New(rand.NewPCG(0x6f7262, 0x62726965))
	sample := func() float64 {
		v := math.Round(rng.NormFloat64() * float64(2*patchRadius+1) / 5)
		return math.Max(-briefExtent, math.Min(briefExtent, v))
	}
	var pattern [briefBits]briefPair
	for i := range pattern {
		pattern[i] = briefPair{sample(), sample(), sample(), sample()}
	}
	return pattern
}

type orbDetector struct {
	maxFeatures int
}

func newORB(maxFeatures int) *orbDetector {
	return &orbDetector{maxFeatures: maxFeatures}
}

func (d *orbDetector) Detect(g *image.Gray) Set {
	g = imaging.ToGray(g)
	kps := detectCorners(g, d.maxFeatures)
	set := Set{Norm: NormHamming}
	if len(kps) == 0 {
		return set
	}
	smooth := imaging.GaussianBlur(g, 7, 2)
	set.Keypoints = kps
	set.Binary = make([][4]uint64, len(kps))
	for i, kp := range kps {
		set.Binary[i] = steeredBrief(smooth, kp)
	}
	return set
}

func steeredBrief(g *image.Gray, kp Keypoint) [4]uint64 {
	sin, cos := math.Sincos(kp.Angle)
	cx, cy := int(kp.X), int(kp.Y)
	at := func(px, py float64) uint8 {
		x := cx + int(math.Round(cos*px-sin*py))
		y := cy + int(math.Round(sin*px+cos*py))
		return g.Pix[y*g.Stride+x]
	}
	var desc [4]uint64
	for i, p := range briefPattern {
		if at(p.x1, p.y1) < at(p.x2, p.y2) {
			desc[i/64] |= 1 << uint(i%64)
		}
	}
	return desc
}
