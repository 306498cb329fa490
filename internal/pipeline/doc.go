// Package pipeline runs pan detection end to end: decode and sample a video,
// estimate and classify motion between consecutive samples, build pan groups,
// export each group's frames, and optionally stitch and gate a panorama.
//
// A run either returns a complete Result or a single error. Per-pair matching
// failures and stitch failures are absorbed; failing to open the video or to
// persist a frame aborts the run.
package pipeline
