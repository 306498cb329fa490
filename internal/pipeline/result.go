package pipeline

import (
	"panscan/internal/motion"
	"panscan/internal/stitch"
)

// VideoMeta describes the analysed stream.
type VideoMeta struct {
	TotalFrames int     `json:"total_frames"`
	FPS         float64 `json:"fps"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	SampleEvery int     `json:"sample_every"`
}

// StitchReport explains what happened to a group's panorama.
type StitchReport struct {
	Status  string          `json:"status"`
	Verdict *stitch.Verdict `json:"verdict,omitempty"`
}

// GroupResult is one exported pan group. PanoURI is nil unless a panorama was
// stitched, passed the quality gate, and was stored.
type GroupResult struct {
	ID              int              `json:"id"`
	Direction       motion.Direction `json:"direction"`
	SampledIndices  []int            `json:"sampled_indices"`
	FrameIndices    []int            `json:"frame_indices"`
	FrameURIs       []string         `json:"frame_uris"`
	PanoURI         *string          `json:"pano_uri,omitempty"`
	Stitch          *StitchReport    `json:"stitch,omitempty"`
	OverlapEstimate float64          `json:"overlap_estimate"`
}

// HasPano reports whether a panorama was kept.
func (g GroupResult) HasPano() bool { return g.PanoURI != nil }

// Stats counts the work done by a run.
type Stats struct {
	Decoded         int `json:"decoded"`
	Sampled         int `json:"sampled"`
	Blurry          int `json:"blurry"`
	Pairs           int `json:"pairs"`
	PanPairs        int `json:"pan_pairs"`
	GroupsDiscarded int `json:"groups_discarded"`
	Groups          int `json:"groups"`
	Panos           int `json:"panos"`
}

// Result is the record returned by a successful run. Groups are in discovery
// order.
type Result struct {
	RunID        string        `json:"run_id"`
	Video        string        `json:"video"`
	OutputPrefix string        `json:"output_prefix"`
	VideoMeta    VideoMeta     `json:"video_meta"`
	Groups       []GroupResult `json:"groups"`
	Stats        Stats         `json:"stats"`
}

// PanoCount returns the number of groups with a kept panorama.
func (r *Result) PanoCount() int {
	n := 0
	for _, g := range r.Groups {
		if g.HasPano() {
			n++
		}
	}
	return n
}
