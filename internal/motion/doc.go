// Package motion measures the camera motion between two frames and decides
// whether it is a horizontal pan step.
//
// The Estimator reduces the inliers of a RANSAC homography into a Summary
// (median displacement, inlier ratio, residual, scale). Failure to find enough
// features, matches, or inliers is an expected outcome and is reported as an
// absent Result rather than an error. The Classifier turns a Result into an
// is-pan decision, a confidence score, and a direction.
package motion
