package geometry_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"panscan/internal/geometry"
)

func grid(n int) []geometry.Point {
	pts := make([]geometry.Point, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			pts = append(pts, geometry.Point{X: float64(x*37%311) + 5, Y: float64(y*29%223) + 7})
		}
	}
	return pts
}

func transform(h geometry.Homography, pts []geometry.Point) []geometry.Point {
	out := make([]geometry.Point, len(pts))
	for i, p := range pts {
		out[i], _ = h.Apply(p)
	}
	return out
}

func assertClose(t *testing.T, got, want geometry.Homography, tol float64) {
	t.Helper()
	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("homography mismatch at %d: got %v want %v", i, got, want)
		}
	}
}

func TestFitHomographyRecoversTranslation(t *testing.T) {
	want := geometry.Homography{1, 0, 20, 0, 1, -3, 0, 0, 1}
	src := grid(5)
	h, err := geometry.FitHomography(src, transform(want, src))
	if err != nil {
		t.Fatalf("FitHomography returned error: %v", err)
	}
	assertClose(t, h, want, 1e-8)
	if s := h.LinearScale(); math.Abs(s-1) > 1e-9 {
		t.Fatalf("translation scale = %v, want 1", s)
	}
}

func TestFitHomographyRecoversProjective(t *testing.T) {
	want := geometry.Homography{1.05, 0.02, 12, -0.01, 0.98, 4, 1e-4, -2e-4, 1}
	src := grid(6)
	h, err := geometry.FitHomography(src, transform(want, src))
	if err != nil {
		t.Fatalf("FitHomography returned error: %v", err)
	}
	assertClose(t, h, want, 1e-6)
}

func TestFitHomographyRejectsDegenerate(t *testing.T) {
	line := []geometry.Point{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}}
	if _, err := geometry.FitHomography(line, line); err == nil {
		t.Fatal("expected collinear points to be rejected")
	}
	if _, err := geometry.FitHomography(line[:3], line[:3]); err == nil {
		t.Fatal("expected too few points to be rejected")
	}
}

func TestFindHomographyIgnoresOutliers(t *testing.T) {
	want := geometry.Homography{1, 0, -45, 0, 1, 0.5, 0, 0, 1}
	src := grid(8)
	dst := transform(want, src)
	rng := rand.New(rand.NewPCG(7, 7))
	outliers := 0
	for i := range dst {
		if i%4 == 0 {
			dst[i].X += 50 + rng.Float64()*100
			dst[i].Y -= 50 + rng.Float64()*100
			outliers++
		}
	}

	h, mask, err := geometry.FindHomography(src, dst, geometry.DefaultRANSACOptions())
	if err != nil {
		t.Fatalf("FindHomography returned error: %v", err)
	}
	assertClose(t, h, want, 1e-6)
	inliers := 0
	for _, in := range mask {
		if in {
			inliers++
		}
	}
	if inliers < len(src)-outliers {
		t.Fatalf("expected at least %d inliers, got %d", len(src)-outliers, inliers)
	}
}

func TestFindHomographyDeterministic(t *testing.T) {
	src := grid(6)
	dst := transform(geometry.Homography{1, 0, 10, 0, 1, 2, 0, 0, 1}, src)
	dst[3] = geometry.Point{X: 999, Y: 999}
	opts := geometry.DefaultRANSACOptions()
	a, _, errA := geometry.FindHomography(src, dst, opts)
	b, _, errB := geometry.FindHomography(src, dst, opts)
	if errA != nil || errB != nil {
		t.Fatalf("unexpected errors: %v %v", errA, errB)
	}
	if a != b {
		t.Fatalf("expected identical fits, got %v and %v", a, b)
	}
}

func TestFindHomographyNoConsensus(t *testing.T) {
	src := []geometry.Point{{0, 0}, {1, 1}, {2, 2}}
	if _, _, err := geometry.FindHomography(src, src, geometry.DefaultRANSACOptions()); err == nil {
		t.Fatal("expected error for fewer than four points")
	}
}

func TestApplyAtInfinity(t *testing.T) {
	h := geometry.Homography{1, 0, 0, 0, 1, 0, 1, 0, 0}
	if _, ok := h.Apply(geometry.Point{X: 0, Y: 5}); ok {
		t.Fatal("expected point at infinity")
	}
	if e := h.ReprojectionError(geometry.Point{}, geometry.Point{}); !math.IsInf(e, 1) {
		t.Fatalf("expected infinite error, got %v", e)
	}
	if geometry.Identity().LinearScale() != 1 {
		t.Fatal("identity scale should be 1")
	}
}
