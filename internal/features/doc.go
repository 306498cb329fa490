// Package features detects keypoints, computes descriptors, and matches them
// between two images.
//
// Two families are available. ORB uses FAST corners ranked by Harris
// response, intensity-centroid orientation, and a steered 256-bit binary
// test pattern compared with Hamming distance. SIFT uses the same oriented
// keypoints with a 4x4x8 gradient-orientation histogram compared with L2
// distance. Builds tagged gocv replace both with the OpenCV implementations.
package features
