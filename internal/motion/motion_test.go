package motion_test

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"panscan/internal/config"
	"panscan/internal/geometry"
	"panscan/internal/motion"
	"panscan/internal/testsupport"
)

var families = []string{"ORB", "SIFT"}

func newEstimator(t *testing.T) (*motion.Estimator, motion.Thresholds) {
	t.Helper()
	return newFamilyEstimator(t, "ORB")
}

func newFamilyEstimator(t *testing.T, family string) (*motion.Estimator, motion.Thresholds) {
	t.Helper()
	cfg := config.Default()
	cfg.Motion.Feature = family
	est, err := motion.NewEstimator(motion.OptionsFromConfig(&cfg))
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	return est, motion.ThresholdsFromConfig(&cfg)
}

func TestIdenticalFramesAreNotAPan(t *testing.T) {
	for _, family := range families {
		t.Run(family, func(t *testing.T) {
			checkIdenticalFrames(t, family)
		})
	}
}

func checkIdenticalFrames(t *testing.T, family string) {
	est, thr := newFamilyEstimator(t, family)
	frame := testsupport.Scene(320, 240, 21)

	r := est.Estimate(frame, frame)
	s, ok := r.Summary()
	if !ok {
		t.Fatalf("expected a summary, got status %s", r.Status)
	}
	if s.MedianU != 0 || s.MedianV != 0 {
		t.Fatalf("expected zero displacement, got u=%v v=%v", s.MedianU, s.MedianV)
	}
	if math.Abs(s.Scale-1) > 1e-6 || s.Residual > 1e-6 {
		t.Fatalf("expected identity motion, got scale=%v residual=%v", s.Scale, s.Residual)
	}

	c := thr.Classify(r)
	if c.IsPan {
		t.Fatal("identical frames classified as a pan")
	}
	if got := thr.Reason(c); got != "static" {
		t.Fatalf("reason = %q, want static", got)
	}
}

func TestHorizontalTranslationIsAPan(t *testing.T) {
	scene := testsupport.Scene(420, 240, 8)

	cases := []struct {
		name string
		dx   int
		want motion.Direction
	}{
		{"right", 20, motion.Right},
		{"left", -24, motion.Left},
	}
	for _, family := range families {
		est, thr := newFamilyEstimator(t, family)
		for _, tc := range cases {
			t.Run(family+"/"+tc.name, func(t *testing.T) {
				a := testsupport.Shift(scene, 50, 0, 320, 240, 0, 0)
				b := testsupport.Shift(scene, 50, 0, 320, 240, tc.dx, 0)
				c := thr.Classify(est.Estimate(a, b))
				s, ok := c.Motion.Summary()
				if !ok {
					t.Fatalf("expected a summary, got status %s", c.Motion.Status)
				}
				if math.Abs(s.MedianU-float64(tc.dx)) > 0.5 || math.Abs(s.MedianV) > 0.5 {
					t.Fatalf("median displacement = (%v, %v), want (%d, 0)", s.MedianU, s.MedianV, tc.dx)
				}
				if !c.IsPan {
					t.Fatalf("expected pan, reason %s (summary %+v)", thr.Reason(c), s)
				}
				if c.Direction != tc.want {
					t.Fatalf("direction = %s, want %s", c.Direction, tc.want)
				}
			})
		}
	}
}

func TestVerticalShiftIsNotAPan(t *testing.T) {
	scene := testsupport.Scene(420, 300, 4)
	a := testsupport.Shift(scene, 50, 30, 320, 240, 0, 0)
	b := testsupport.Shift(scene, 50, 30, 320, 240, 20, 10)
	for _, family := range families {
		t.Run(family, func(t *testing.T) {
			est, thr := newFamilyEstimator(t, family)
			c := thr.Classify(est.Estimate(a, b))
			if c.IsPan {
				t.Fatal("diagonal motion classified as a pan")
			}
			if got := thr.Reason(c); got != "vertical_motion" {
				t.Fatalf("reason = %q, want vertical_motion", got)
			}
		})
	}
}

func TestFlatFramesHaveNoSummary(t *testing.T) {
	est, thr := newEstimator(t)
	flat := testsupport.Flat(160, 120)
	r := est.Estimate(flat, flat)
	if _, ok := r.Summary(); ok {
		t.Fatal("expected no summary for featureless frames")
	}
	if r.Status != motion.StatusNoFeatures {
		t.Fatalf("status = %s, want no_features", r.Status)
	}
	c := thr.Classify(r)
	if c.IsPan || c.Score != 0 {
		t.Fatalf("absent summary must classify as (false, 0), got (%v, %v)", c.IsPan, c.Score)
	}
}

func TestUnrelatedFramesHaveNoSummary(t *testing.T) {
	est, _ := newEstimator(t)
	r := est.Estimate(testsupport.Scene(320, 240, 1), testsupport.Scene(320, 240, 2))
	if _, ok := r.Summary(); ok {
		t.Fatalf("expected unrelated frames to yield no summary, got %+v", r)
	}
}

func TestAbsentNeverCarriesOK(t *testing.T) {
	if r := motion.Absent(motion.StatusOK); r.Status == motion.StatusOK {
		t.Fatal("Absent must not produce an OK status")
	}
}

func TestClassifyCriteria(t *testing.T) {
	thr := motion.Thresholds{TauInliers: 0.3, TauV: 1.5, TauUMin: 15, TauUMax: 400, TauScale: 0.02, TauParallax: 1.5}
	base := motion.Summary{Homography: geometry.Identity(), InlierRatio: 0.8, MedianU: 30, Scale: 1, Residual: 0.5}

	cases := []struct {
		name   string
		mutate func(*motion.Summary)
		pan    bool
		reason string
	}{
		{"pan", func(*motion.Summary) {}, true, "pan"},
		{"negative pan", func(s *motion.Summary) { s.MedianU = -30 }, true, "pan"},
		{"boundary values", func(s *motion.Summary) {
			s.InlierRatio, s.MedianV, s.MedianU, s.Scale, s.Residual = 0.3, 1.5, 15, 0.985, 1.5
		}, true, "pan"},
		{"low inliers", func(s *motion.Summary) { s.InlierRatio = 0.29 }, false, "low_inlier_ratio"},
		{"vertical", func(s *motion.Summary) { s.MedianV = -1.6 }, false, "vertical_motion"},
		{"slow", func(s *motion.Summary) { s.MedianU = 14.9 }, false, "static"},
		{"fast", func(s *motion.Summary) { s.MedianU = 401 }, false, "too_fast"},
		{"zoom", func(s *motion.Summary) { s.Scale = 0.97 }, false, "scale_drift"},
		{"parallax", func(s *motion.Summary) { s.Residual = 2 }, false, "parallax"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := base
			tc.mutate(&s)
			c := thr.Classify(motion.Measured(s))
			if c.IsPan != tc.pan {
				t.Fatalf("IsPan = %v, want %v", c.IsPan, tc.pan)
			}
			if got := thr.Reason(c); got != tc.reason {
				t.Fatalf("Reason = %q, want %q", got, tc.reason)
			}
		})
	}
}

func TestScoreFormula(t *testing.T) {
	thr := motion.Thresholds{TauInliers: 0.3, TauV: 2, TauUMin: 15, TauUMax: 400, TauScale: 0.04, TauParallax: 1}
	s := motion.Summary{InlierRatio: 0.5, MedianV: 1, Scale: 1.01, Residual: 3}
	// 1.5*0.5 + 0.6*(1-0.5) + 0.4*(1-0.25) + 0.6*0
	want := 0.75 + 0.3 + 0.3
	if got := thr.Classify(motion.Measured(s)).Score; math.Abs(got-want) > 1e-12 {
		t.Fatalf("score = %v, want %v", got, want)
	}
}

func TestScoreBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		thr := motion.Thresholds{
			TauInliers:  rapid.Float64Range(0.01, 1).Draw(t, "tau_inliers"),
			TauV:        rapid.Float64Range(0.01, 10).Draw(t, "tau_v"),
			TauUMin:     rapid.Float64Range(0, 50).Draw(t, "tau_u_min"),
			TauUMax:     rapid.Float64Range(50, 500).Draw(t, "tau_u_max"),
			TauScale:    rapid.Float64Range(0.001, 0.5).Draw(t, "tau_scale"),
			TauParallax: rapid.Float64Range(0.01, 10).Draw(t, "tau_parallax"),
		}
		s := motion.Summary{
			InlierRatio: rapid.Float64Range(0, 1).Draw(t, "inlier_ratio"),
			MedianU:     rapid.Float64Range(-1000, 1000).Draw(t, "median_u"),
			MedianV:     rapid.Float64Range(-1000, 1000).Draw(t, "median_v"),
			Scale:       rapid.Float64Range(0, 3).Draw(t, "scale"),
			Residual:    rapid.Float64Range(0, 100).Draw(t, "residual"),
		}
		c := thr.Classify(motion.Measured(s))
		if c.Score < 0 || c.Score > 3.1+1e-9 {
			t.Fatalf("score %v outside [0, 3.1]", c.Score)
		}
		if c.Score < 1.5*s.InlierRatio-1e-9 {
			t.Fatalf("score %v below inlier contribution", c.Score)
		}
		if (s.MedianU >= 0) != (c.Direction == motion.Right) {
			t.Fatalf("direction %s disagrees with median_u %v", c.Direction, s.MedianU)
		}
	})
}
