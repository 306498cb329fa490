package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"panscan/internal/pipeline"
	"panscan/internal/services"
	"panscan/internal/testsupport"
)

func steadyPan() testsupport.PanOptions {
	return testsupport.PanOptions{Count: 30, FrameWidth: 320, FrameHeight: 240, StepX: 20, Seed: 42}
}

func decodeResult(t *testing.T, out string) pipeline.Result {
	t.Helper()
	var result pipeline.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out)
	}
	return result
}

func TestDetectPrintsJSONWhenPiped(t *testing.T) {
	env := setupCLITestEnv(t)
	useVideo(t, steadyPan())

	out, _, err := runCLI(t, []string{"detect", "/videos/lobby.mp4"}, env.configPath)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	result := decodeResult(t, out)
	if len(result.Groups) != 1 {
		t.Fatalf("expected one group, got %d", len(result.Groups))
	}
	if diff := cmp.Diff([]int{0, 6, 12, 18, 24, 27}, result.Groups[0].FrameIndices); diff != "" {
		t.Fatalf("frame indices mismatch (-want +got):\n%s", diff)
	}
	if want := filepath.Join(env.cfg.Paths.OutputDir, "lobby"); result.OutputPrefix != want {
		t.Fatalf("prefix = %q, want %q", result.OutputPrefix, want)
	}
	for _, uri := range result.Groups[0].FrameURIs {
		if _, err := os.Stat(uri); err != nil {
			t.Fatalf("exported frame missing: %v", err)
		}
	}
}

func TestDetectFlagsOverrideConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	useVideo(t, steadyPan())
	output := filepath.Join(env.baseDir, "custom")

	out, _, err := runCLI(t, []string{
		"detect", "/videos/lobby.mp4",
		"--output", output,
		"--export-all",
		"--set", "min_group_len=4",
		"--workers", "2",
	}, env.configPath)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	result := decodeResult(t, out)
	if result.OutputPrefix != output {
		t.Fatalf("prefix = %q, want %q", result.OutputPrefix, output)
	}
	if len(result.Groups) != 1 {
		t.Fatalf("expected one group, got %d", len(result.Groups))
	}
	if got := len(result.Groups[0].FrameIndices); got != 10 {
		t.Fatalf("export-all should keep all 10 sampled frames, got %d", got)
	}
}

func TestDetectRejectsInvalidSettings(t *testing.T) {
	env := setupCLITestEnv(t)
	useVideo(t, steadyPan())

	_, _, err := runCLI(t, []string{"detect", "/videos/lobby.mp4", "--set", "sample_every=0"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	_, _, err = runCLI(t, []string{"detect", "/videos/lobby.mp4", "--set", "sample_every"}, env.configPath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for malformed pair, got %v", err)
	}
}

func TestDetectRejectsObjectStoragePrefix(t *testing.T) {
	env := setupCLITestEnv(t)
	useVideo(t, steadyPan())

	_, _, err := runCLI(t, []string{"detect", "/videos/lobby.mp4", "--output", "s3://bucket/run"}, env.configPath)
	if !errors.Is(err, services.ErrUnsupported) {
		t.Fatalf("expected unsupported error, got %v", err)
	}
}

func TestDetectRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	useVideo(t, steadyPan())

	out, _, err := runCLI(t, []string{"detect", "/videos/lobby.mp4"}, env.configPath)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	result := decodeResult(t, out)

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []struct {
		ID         string `json:"id"`
		Status     string `json:"status"`
		GroupCount int    `json:"group_count"`
	}
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].ID != result.RunID || runs[0].Status != "completed" || runs[0].GroupCount != 1 {
		t.Fatalf("unexpected history %+v", runs)
	}

	out, _, err = runCLI(t, []string{"history", "show", result.RunID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	shown := decodeResult(t, out)
	if diff := cmp.Diff(result, shown); diff != "" {
		t.Fatalf("stored result mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectRecordsFailedRun(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"detect", filepath.Join(env.baseDir, "absent.mp4")}, env.configPath); err == nil {
		t.Fatal("expected detect to fail for a missing video")
	}

	out, _, err := runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, `"status": "failed"`)
	requireContains(t, out, `"failure_kind": "not_found"`)
}

func TestHistoryRequiresCatalog(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithCatalogDisabled())

	_, _, err := runCLI(t, []string{"history"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestHistoryPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	useVideo(t, steadyPan())
	if _, _, err := runCLI(t, []string{"detect", "/videos/lobby.mp4"}, env.configPath); err != nil {
		t.Fatalf("detect: %v", err)
	}

	out, _, err := runCLI(t, []string{"history", "prune", "--older-than", "1h"}, env.configPath)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	requireContains(t, out, "Removed 0 run(s)")

	if _, _, err := runCLI(t, []string{"history", "prune", "--older-than", "0s"}, env.configPath); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for zero cutoff, got %v", err)
	}
}
