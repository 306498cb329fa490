// Package imaging provides the pixel-level primitives the detector relies on:
// grayscale conversion, Laplacian sharpness, separable Gaussian blur, and the
// near-black pixel fraction used by the panorama quality gate.
package imaging
