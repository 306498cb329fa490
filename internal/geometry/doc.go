// Package geometry fits planar homographies between point sets.
//
// FitHomography solves the normalised direct linear transform through the
// eigen-decomposition of AᵀA. FindHomography wraps it in RANSAC with an
// adaptive iteration budget and refits the winning model on its inliers.
package geometry
