//go:build gocv

package features

import (
	"encoding/binary"
	"image"

	"gocv.io/x/gocv"
)

func init() {
	Register("ORB", func(n int) Detector { return &opencvDetector{family: "ORB", maxFeatures: n} })
	Register("SIFT", func(n int) Detector { return &opencvDetector{family: "SIFT", maxFeatures: n} })
}

// opencvDetector delegates detection and description to OpenCV. OpenCV
// feature objects are not goroutine safe, so each call builds its own.
type opencvDetector struct {
	family      string
	maxFeatures int
}

func (d *opencvDetector) Detect(g *image.Gray) Set {
	b := g.Bounds()
	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, grayBytes(g))
	if err != nil {
		return Set{}
	}
	defer mat.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	if d.family == "SIFT" {
		sift := gocv.NewSIFT()
		defer sift.Close()
		kps, desc := sift.DetectAndCompute(mat, mask)
		defer desc.Close()
		return floatSet(kps, desc, d.maxFeatures)
	}

	orb := gocv.NewORBWithParams(d.maxFeatures, 1.2, 8, 31, 0, 2, gocv.ORBScoreTypeHarris, 31, 20)
	defer orb.Close()
	kps, desc := orb.DetectAndCompute(mat, mask)
	defer desc.Close()
	return binarySet(kps, desc, d.maxFeatures)
}

func grayBytes(g *image.Gray) []byte {
	b := g.Bounds()
	if g.Stride == b.Dx() && b.Min == (image.Point{}) {
		return g.Pix
	}
	out := make([]byte, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		out = append(out, g.Pix[g.PixOffset(b.Min.X, y):g.PixOffset(b.Max.X, y)]...)
	}
	return out
}

func toKeypoint(kp gocv.KeyPoint) Keypoint {
	const degToRad = 3.141592653589793 / 180
	return Keypoint{X: kp.X, Y: kp.Y, Response: kp.Response, Angle: kp.Angle * degToRad}
}

func binarySet(kps []gocv.KeyPoint, desc gocv.Mat, limit int) Set {
	set := Set{Norm: NormHamming}
	if desc.Empty() || desc.Cols() != 32 {
		return set
	}
	n := min(len(kps), desc.Rows(), limit)
	for i := 0; i < n; i++ {
		var raw [32]byte
		for c := 0; c < 32; c++ {
			raw[c] = desc.GetUCharAt(i, c)
		}
		var d [4]uint64
		for w := 0; w < 4; w++ {
			d[w] = binary.LittleEndian.Uint64(raw[w*8:])
		}
		set.Keypoints = append(set.Keypoints, toKeypoint(kps[i]))
		set.Binary = append(set.Binary, d)
	}
	return set
}

func floatSet(kps []gocv.KeyPoint, desc gocv.Mat, limit int) Set {
	set := Set{Norm: NormL2}
	if desc.Empty() {
		return set
	}
	n := min(len(kps), desc.Rows(), limit)
	cols := desc.Cols()
	for i := 0; i < n; i++ {
		row := make([]float32, cols)
		for c := 0; c < cols; c++ {
			row[c] = desc.GetFloatAt(i, c)
		}
		set.Keypoints = append(set.Keypoints, toKeypoint(kps[i]))
		set.Float = append(set.Float, row)
	}
	return set
}
