package imaging

import (
	"image"

	"gonum.org/v1/gonum/stat"
)

// LaplacianVariance measures focus as the population variance of the 3x3
// Laplacian response. Borders are reflected without repeating the edge pixel.
func LaplacianVariance(g *image.Gray) float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	at := func(x, y int) float64 {
		x = reflect101(x, w)
		y = reflect101(y, h)
		return float64(g.Pix[y*g.Stride+x])
	}
	response := make([]float64, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := at(x, y-1) + at(x-1, y) + at(x+1, y) + at(x, y+1) - 4*at(x, y)
			response = append(response, v)
		}
	}
	return stat.PopVariance(response, nil)
}

// reflect101 mirrors an out-of-range coordinate: -1 maps to 1, n maps to n-2.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}
