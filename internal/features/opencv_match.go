//go:build gocv

package features

import "gocv.io/x/gocv"

func init() {
	knnMatch = opencvKNN
}

// opencvKNN runs OpenCV's brute-force matcher with k=2. Each call owns its
// matcher because BFMatcher is not goroutine safe.
func opencvKNN(query, train Set) [][]Match {
	q, t := descriptorMat(query), descriptorMat(train)
	defer q.Close()
	defer t.Close()

	norm := gocv.NormHamming
	if query.Norm == NormL2 {
		norm = gocv.NormL2
	}
	bf := gocv.NewBFMatcherWithParams(norm, false)
	defer bf.Close()

	out := make([][]Match, query.Len())
	for _, nn := range bf.KnnMatch(q, t, 2) {
		if len(nn) < 2 || nn[0].QueryIdx >= len(out) {
			continue
		}
		out[nn[0].QueryIdx] = []Match{
			{Query: nn[0].QueryIdx, Train: nn[0].TrainIdx, Distance: nn[0].Distance},
			{Query: nn[1].QueryIdx, Train: nn[1].TrainIdx, Distance: nn[1].Distance},
		}
	}
	return out
}

func descriptorMat(s Set) gocv.Mat {
	n := s.Len()
	if s.Norm == NormHamming {
		m := gocv.NewMatWithSize(n, 32, gocv.MatTypeCV8UC1)
		for i := 0; i < n; i++ {
			for w, word := range s.Binary[i] {
				for b := 0; b < 8; b++ {
					m.SetUCharAt(i, w*8+b, uint8(word>>(8*b)))
				}
			}
		}
		return m
	}
	cols := len(s.Float[0])
	m := gocv.NewMatWithSize(n, cols, gocv.MatTypeCV32FC1)
	for i := 0; i < n; i++ {
		for c, v := range s.Float[i] {
			m.SetFloatAt(i, c, v)
		}
	}
	return m
}
