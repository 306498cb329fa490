package stitch

import (
	"fmt"
	"image"

	"panscan/internal/imaging"
)

// blackLuma is the luma below which a pixel counts as border.
const blackLuma = 10

// Gate rejects panoramas that are not meaningfully wider than tall or that
// carry too much black border.
type Gate struct {
	MinAspect       float64
	MaxBlackPercent float64
}

// Verdict records the measurements behind a gate decision.
type Verdict struct {
	Accepted     bool    `json:"accepted"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Aspect       float64 `json:"aspect"`
	BlackPercent float64 `json:"black_percent"`
	Reason       string  `json:"reason,omitempty"`
}

// Check measures img and applies both limits. The aspect limit is checked
// first, so an image failing both reports the aspect reason.
func (g Gate) Check(img image.Image) Verdict {
	b := img.Bounds()
	v := Verdict{Width: b.Dx(), Height: b.Dy()}
	if v.Width == 0 || v.Height == 0 {
		v.Reason = "empty image"
		return v
	}
	v.Aspect = float64(v.Width) / float64(v.Height)
	v.BlackPercent = imaging.BlackFraction(img, blackLuma) * 100

	switch {
	case v.Aspect < g.MinAspect:
		v.Reason = fmt.Sprintf("aspect %.2f below %.2f", v.Aspect, g.MinAspect)
	case v.BlackPercent > g.MaxBlackPercent:
		v.Reason = fmt.Sprintf("black border %.1f%% above %.1f%%", v.BlackPercent, g.MaxBlackPercent)
	default:
		v.Accepted = true
	}
	return v
}
