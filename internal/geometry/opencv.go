//go:build gocv

package geometry

import "gocv.io/x/gocv"

func init() {
	solveRANSAC = opencvRANSAC
}

// opencvRANSAC delegates to cv::findHomography. OpenCV seeds its own sampler,
// so opts.Seed is unused.
func opencvRANSAC(src, dst []Point, opts RANSACOptions) (Homography, []bool, error) {
	srcMat, dstMat := pointMat(src), pointMat(dst)
	defer srcMat.Close()
	defer dstMat.Close()
	maskMat := gocv.NewMat()
	defer maskMat.Close()

	hMat := gocv.FindHomography(srcMat, &dstMat, gocv.HomographyMethodRANSAC,
		opts.Threshold, &maskMat, opts.MaxIters, opts.Confidence)
	defer hMat.Close()
	if hMat.Empty() || maskMat.Empty() {
		return Homography{}, nil, ErrNoModel
	}

	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r*3+c] = hMat.GetDoubleAt(r, c)
		}
	}
	h, ok := h.normalized()
	if !ok {
		return Homography{}, nil, ErrNoModel
	}
	mask := make([]bool, len(src))
	inliers := 0
	for i := range mask {
		mask[i] = maskMat.GetUCharAt(i, 0) != 0
		if mask[i] {
			inliers++
		}
	}
	if inliers < 4 {
		return Homography{}, nil, ErrNoModel
	}
	return h, mask, nil
}

// pointMat packs points as an Nx2 CV_64F matrix, the layout findHomography
// accepts alongside point vectors.
func pointMat(pts []Point) gocv.Mat {
	m := gocv.NewMatWithSize(len(pts), 2, gocv.MatTypeCV64FC1)
	for i, p := range pts {
		m.SetDoubleAt(i, 0, p.X)
		m.SetDoubleAt(i, 1, p.Y)
	}
	return m
}
