// Package video decodes a video file into a sequence of frames in index
// order. The default backend pipes rgb24 rawvideo out of ffmpeg; builds
// tagged gocv can use OpenCV's VideoCapture instead.
package video
