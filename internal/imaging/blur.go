package imaging

import (
	"image"
	"math"
)

// GaussianBlur smooths g with a separable kernel of the given size and sigma.
// Size is forced odd; borders are reflected.
func GaussianBlur(g *image.Gray, size int, sigma float64) *image.Gray {
	if size < 3 {
		size = 3
	}
	if size%2 == 0 {
		size++
	}
	kernel := gaussianKernel(size, sigma)
	r := size / 2
	w, h := g.Rect.Dx(), g.Rect.Dy()
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for x := 0; x < w; x++ {
			var acc float64
			for k := -r; k <= r; k++ {
				acc += kernel[k+r] * float64(row[reflect101(x+k, w)])
			}
			tmp[y*w+x] = acc
		}
	}
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k := -r; k <= r; k++ {
				acc += kernel[k+r] * tmp[reflect101(y+k, h)*w+x]
			}
			out.Pix[y*out.Stride+x] = clampByte(acc)
		}
	}
	return out
}

func gaussianKernel(size int, sigma float64) []float64 {
	if sigma <= 0 {
		sigma = 0.3*(float64(size-1)*0.5-1) + 0.8
	}
	r := size / 2
	kernel := make([]float64, size)
	var sum float64
	for i := -r; i <= r; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+r] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func clampByte(v float64) uint8 {
	v = math.Round(v)
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
