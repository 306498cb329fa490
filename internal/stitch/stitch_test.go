package stitch_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"panscan/internal/config"
	"panscan/internal/motion"
	"panscan/internal/stitch"
	"panscan/internal/testsupport"
)

func defaultGate() stitch.Gate {
	cfg := config.Default()
	return stitch.Gate{MinAspect: cfg.Stitch.MinPanoAspectRatio, MaxBlackPercent: cfg.Stitch.MaxBlackBorderPercent}
}

func grey(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: v, G: v, B: v, A: 255}}, image.Point{}, draw.Src)
	return img
}

func TestGateRejectsSquareImage(t *testing.T) {
	for _, fill := range []uint8{0, 200} {
		v := defaultGate().Check(grey(200, 200, fill))
		if v.Accepted {
			t.Fatalf("square image with fill %d accepted", fill)
		}
		if !strings.Contains(v.Reason, "aspect") {
			t.Fatalf("expected aspect reason, got %q", v.Reason)
		}
	}
}

func TestGateRejectsBlackBorder(t *testing.T) {
	img := grey(400, 200, 200)
	// 80 of 400 columns black: 20%.
	draw.Draw(img, image.Rect(0, 0, 80, 200), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	v := defaultGate().Check(img)
	if v.Accepted {
		t.Fatal("image with 20% black pixels accepted")
	}
	if v.BlackPercent < 19.99 || v.BlackPercent > 20.01 {
		t.Fatalf("black percent = %v, want 20", v.BlackPercent)
	}
}

func TestGateAcceptsWideCleanImage(t *testing.T) {
	img := grey(400, 200, 200)
	draw.Draw(img, image.Rect(0, 0, 40, 200), &image.Uniform{C: color.RGBA{R: 9, G: 9, B: 9, A: 255}}, image.Point{}, draw.Src)
	v := defaultGate().Check(img)
	if !v.Accepted {
		t.Fatalf("expected acceptance, got %+v", v)
	}
	if v.Width != 400 || v.Height != 200 || v.Aspect != 2 {
		t.Fatalf("unexpected measurements %+v", v)
	}
}

func newCompositor(t *testing.T) *stitch.Compositor {
	t.Helper()
	cfg := config.Default()
	est, err := motion.NewEstimator(motion.OptionsFromConfig(&cfg))
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	return stitch.NewCompositor(est, nil)
}

func panFrames(n, step int) []image.Image {
	src := testsupport.NewPanSource(testsupport.PanOptions{Count: n, FrameWidth: 320, FrameHeight: 240, StepX: step, Seed: 17})
	return src.Frames
}

func TestCompositorNeedsTwoImages(t *testing.T) {
	img, status, err := newCompositor(t).Stitch(context.Background(), panFrames(1, 0), stitch.WarpConfig{Warper: config.WarperPlane})
	if err != nil || img != nil || status != stitch.StatusNeedMoreImages {
		t.Fatalf("got (%v, %s, %v), want need_more_images", img, status, err)
	}
}

func TestCompositorPlanePanorama(t *testing.T) {
	frames := panFrames(4, 100)
	img, status, err := newCompositor(t).Stitch(context.Background(), frames, stitch.WarpConfig{Warper: config.WarperPlane, Scale: 1})
	if err != nil || status != stitch.StatusOK {
		t.Fatalf("Stitch returned (%s, %v)", status, err)
	}
	if got := img.Bounds().Dx(); got < 615 || got > 625 {
		t.Fatalf("panorama width = %d, want about 620", got)
	}
	if got := img.Bounds().Dy(); got != 240 {
		t.Fatalf("panorama height = %d, want 240", got)
	}
	if v := defaultGate().Check(img); !v.Accepted {
		t.Fatalf("gate rejected plane panorama: %+v", v)
	}
}

func TestCompositorCylindricalPanorama(t *testing.T) {
	frames := panFrames(4, 100)
	img, status, err := newCompositor(t).Stitch(context.Background(), frames, stitch.WarpConfig{Warper: config.WarperCylindrical, Scale: 1})
	if err != nil || status != stitch.StatusOK {
		t.Fatalf("Stitch returned (%s, %v)", status, err)
	}
	b := img.Bounds()
	if float64(b.Dx())/float64(b.Dy()) < 2 {
		t.Fatalf("cylindrical panorama %v not wide enough", b)
	}
	if v := defaultGate().Check(img); !v.Accepted {
		t.Fatalf("gate rejected cylindrical panorama: %+v", v)
	}
}

func TestCompositorRejectsUnrelatedFrames(t *testing.T) {
	frames := []image.Image{testsupport.Scene(320, 240, 1), testsupport.Scene(320, 240, 99)}
	img, status, err := newCompositor(t).Stitch(context.Background(), frames, stitch.WarpConfig{Warper: config.WarperSpherical, Scale: 1})
	if err != nil || img != nil || status != stitch.StatusRegistrationFailed {
		t.Fatalf("got (%v, %s, %v), want registration_failed", img, status, err)
	}
}

func TestCompositorHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := newCompositor(t).Stitch(ctx, panFrames(3, 60), stitch.WarpConfig{Warper: config.WarperPlane})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
