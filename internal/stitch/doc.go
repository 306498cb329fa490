// Package stitch composes a group's exported frames into a panorama and
// decides whether the result is good enough to keep.
//
// Stitcher is the capability boundary: it takes ordered images and a warp
// configuration and returns a status plus, on success, one image. The
// Compositor implementation registers consecutive frames with the motion
// estimator, projects each frame onto a plane, cylinder, or sphere, and lays
// them out by their accumulated offsets. Builds with the gocv tag stitch with
// OpenCV's panorama Stitcher instead. Gate applies the aspect-ratio and
// black-border checks.
package stitch
