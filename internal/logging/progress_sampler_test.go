package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "decode") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSampler_ShouldLogStageChange(t *testing.T) {
	s := NewProgressSampler(10)

	if !s.ShouldLog(0, "decode") {
		t.Error("first stage should log")
	}
	if s.ShouldLog(0, " decode ") {
		t.Error("same stage and percent should not log again")
	}
	if !s.ShouldLog(0, "analyze") {
		t.Error("different stage should log")
	}
	if s.lastStage != "analyze" {
		t.Errorf("lastStage = %q, want analyze", s.lastStage)
	}
}

func TestProgressSampler_ShouldLogPercentBuckets(t *testing.T) {
	s := NewProgressSampler(10)
	var emitted []float64
	for _, pct := range []float64{1, 5, 9.9, 10, 15, 20, 99, 100, 100} {
		if s.ShouldLog(pct, "decode") {
			emitted = append(emitted, pct)
		}
	}
	want := []float64{1, 10, 20, 99, 100}
	if len(emitted) != len(want) {
		t.Fatalf("emitted = %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted = %v, want %v", emitted, want)
		}
	}
}

func TestProgressSampler_UnknownPercentOnlyLogsStage(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(-1, "decode") {
		t.Fatal("stage change should log even without percent")
	}
	if s.ShouldLog(-1, "decode") {
		t.Fatal("unknown percent should not log repeatedly")
	}
}

func TestProgressSampler_Reset(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(50, "decode")
	s.Reset()
	if s.lastStage != "" || s.lastBucket != -1 {
		t.Fatalf("reset did not clear state: %+v", s)
	}
	if !s.ShouldLog(50, "decode") {
		t.Fatal("expected log after reset")
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(5, 0); got != -1 {
		t.Fatalf("Percent with unknown total = %v, want -1", got)
	}
	if got := Percent(25, 100); got != 25 {
		t.Fatalf("Percent(25,100) = %v, want 25", got)
	}
}
