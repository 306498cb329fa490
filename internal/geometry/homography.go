package geometry

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate reports a point configuration that admits no unique homography.
var ErrDegenerate = errors.New("degenerate point configuration")

// Point is an image coordinate in pixels.
type Point struct {
	X, Y float64
}

// Homography is a 3x3 projective transform stored row-major.
type Homography [9]float64

// Identity returns the identity transform.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Apply maps p through h. It reports false when p maps to infinity.
func (h Homography) Apply(p Point) (Point, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < 1e-12 {
		return Point{}, false
	}
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}, true
}

// ReprojectionError is the distance between h(src) and dst.
func (h Homography) ReprojectionError(src, dst Point) float64 {
	p, ok := h.Apply(src)
	if !ok {
		return math.Inf(1)
	}
	return math.Hypot(p.X-dst.X, p.Y-dst.Y)
}

// LinearScale is the RMS of the upper-left 2x2 block divided by √2. It is 1
// for a pure translation and drifts with zoom or skew.
func (h Homography) LinearScale() float64 {
	return math.Sqrt((h[0]*h[0] + h[3]*h[3] + h[1]*h[1] + h[4]*h[4]) / 2)
}

func (h Homography) dense() *mat.Dense {
	return mat.NewDense(3, 3, h[:])
}

func fromDense(m mat.Matrix) Homography {
	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r*3+c] = m.At(r, c)
		}
	}
	return h
}

// normalized returns h scaled so that h[8] is 1.
func (h Homography) normalized() (Homography, bool) {
	if math.Abs(h[8]) < 1e-12 {
		return h, false
	}
	s := 1 / h[8]
	for i := range h {
		h[i] *= s
	}
	return h, true
}

// FitHomography estimates the transform mapping src onto dst from at least
// four correspondences using the Hartley-normalised DLT.
func FitHomography(src, dst []Point) (Homography, error) {
	if len(src) != len(dst) {
		return Homography{}, errors.New("point sets differ in length")
	}
	if len(src) < 4 {
		return Homography{}, ErrDegenerate
	}
	srcN, tSrc, ok := normalizePoints(src)
	if !ok {
		return Homography{}, ErrDegenerate
	}
	dstN, tDst, ok := normalizePoints(dst)
	if !ok {
		return Homography{}, ErrDegenerate
	}

	var ata [81]float64
	accumulate := func(row [9]float64) {
		for i := 0; i < 9; i++ {
			if row[i] == 0 {
				continue
			}
			for j := i; j < 9; j++ {
				ata[i*9+j] += row[i] * row[j]
			}
		}
	}
	for i := range srcN {
		x, y := srcN[i].X, srcN[i].Y
		u, v := dstN[i].X, dstN[i].Y
		accumulate([9]float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		accumulate([9]float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}
	for i := 0; i < 9; i++ {
		for j := 0; j < i; j++ {
			ata[i*9+j] = ata[j*9+i]
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(mat.NewSymDense(9, ata[:]), true); !ok {
		return Homography{}, ErrDegenerate
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)
	// Eigenvalues are ascending; a second near-zero value means the null
	// space is not one-dimensional.
	if values[1] <= 1e-12*math.Max(values[8], 1) {
		return Homography{}, ErrDegenerate
	}
	var hn Homography
	for i := 0; i < 9; i++ {
		hn[i] = vectors.At(i, 0)
	}

	// H = T_dst⁻¹ · Hn · T_src
	var tmp, full mat.Dense
	tmp.Mul(hn.dense(), tSrc)
	full.Mul(inverseSimilarity(tDst), &tmp)
	h, ok := fromDense(&full).normalized()
	if !ok {
		return Homography{}, ErrDegenerate
	}
	return h, nil
}

// normalizePoints translates the centroid to the origin and scales the mean
// distance to √2.
func normalizePoints(pts []Point) ([]Point, *mat.Dense, bool) {
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(pts))
	cx /= n
	cy /= n
	var mean float64
	for _, p := range pts {
		mean += math.Hypot(p.X-cx, p.Y-cy)
	}
	mean /= n
	if mean < 1e-9 {
		return nil, nil, false
	}
	s := math.Sqrt2 / mean
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{X: (p.X - cx) * s, Y: (p.Y - cy) * s}
	}
	t := mat.NewDense(3, 3, []float64{
		s, 0, -s * cx,
		0, s, -s * cy,
		0, 0, 1,
	})
	return out, t, true
}

func inverseSimilarity(t *mat.Dense) *mat.Dense {
	s := t.At(0, 0)
	cx := -t.At(0, 2) / s
	cy := -t.At(1, 2) / s
	return mat.NewDense(3, 3, []float64{
		1 / s, 0, cx,
		0, 1 / s, cy,
		0, 0, 1,
	})
}
