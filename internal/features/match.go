package features

import (
	"math"
	"math/bits"
)

// Match pairs a query keypoint with its nearest train keypoint.
type Match struct {
	Query    int
	Train    int
	Distance float64
}

// knnMatch returns up to two nearest train neighbours per query descriptor,
// best first. Builds with the gocv tag swap in OpenCV's BFMatcher.
var knnMatch = bruteForceKNN

// MatchRatio runs a two-nearest-neighbour search from query to train and
// keeps a match only when the best distance is strictly below ratio times
// the second-best distance. Sets with different norms never match.
func MatchRatio(query, train Set, ratio float64) []Match {
	if query.Empty() || train.Len() < 2 || query.Norm != train.Norm {
		return nil
	}
	matches := make([]Match, 0, query.Len()/2)
	for _, nn := range knnMatch(query, train) {
		if len(nn) == 2 && nn[0].Distance < ratio*nn[1].Distance {
			matches = append(matches, nn[0])
		}
	}
	return matches
}

func bruteForceKNN(query, train Set) [][]Match {
	dist := func(i, j int) float64 {
		if query.Norm == NormHamming {
			return float64(hamming(query.Binary[i], train.Binary[j]))
		}
		return euclidean(query.Float[i], train.Float[j])
	}
	out := make([][]Match, query.Len())
	for i := range out {
		best := Match{Query: i, Train: -1, Distance: math.Inf(1)}
		second := best
		for j := 0; j < train.Len(); j++ {
			d := dist(i, j)
			switch {
			case d < best.Distance:
				second = best
				best.Train, best.Distance = j, d
			case d < second.Distance:
				second.Train, second.Distance = j, d
			}
		}
		if second.Train >= 0 {
			out[i] = []Match{best, second}
		}
	}
	return out
}

func hamming(a, b [4]uint64) int {
	return bits.OnesCount64(a[0]^b[0]) + bits.OnesCount64(a[1]^b[1]) +
		bits.OnesCount64(a[2]^b[2]) + bits.OnesCount64(a[3]^b[3])
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
