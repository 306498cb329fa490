package textutil

import (
	"strings"
	"testing"
)

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "   ", "unknown"},
		{"lowercases", "Living Room", "living_room"},
		{"folds accents", "Café Tour", "cafe_tour"},
		{"collapses runs", "a  //  b", "a_b"},
		{"keeps hyphen", "walk-through 02", "walk-through_02"},
		{"only symbols", "!!!", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeToken(tt.input); got != tt.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeTokenTruncates(t *testing.T) {
	got := SanitizeToken(strings.Repeat("x", 200))
	if len(got) != maxTokenLen {
		t.Fatalf("expected length %d, got %d", maxTokenLen, len(got))
	}
}

func TestVideoStem(t *testing.T) {
	tests := map[string]string{
		"/videos/House Tour.MP4":     "house_tour",
		"clip.final.mov":             "clip_final",
		`C:\footage\Kitchen pan.mkv`: "kitchen_pan",
		".hidden":                    "hidden",
	}
	for in, want := range tests {
		if got := VideoStem(in); got != want {
			t.Errorf("VideoStem(%q) = %q, want %q", in, got, want)
		}
	}
}
