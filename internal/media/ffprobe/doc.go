// Package ffprobe wraps the ffprobe CLI and exposes the stream metadata the
// detector needs: dimensions, frame rate, and frame count.
package ffprobe
