package services_test

import (
	"context"
	"testing"

	"panscan/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithStage(ctx, "analyze")
	ctx = services.WithVideo(ctx, "walkthrough.mp4")
	ctx = services.WithGroupID(ctx, 2)

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "analyze" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if video, ok := services.VideoFromContext(ctx); !ok || video != "walkthrough.mp4" {
		t.Fatalf("unexpected video: %v %v", video, ok)
	}
	if gid, ok := services.GroupIDFromContext(ctx); !ok || gid != 2 {
		t.Fatalf("unexpected group id: %v %v", gid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.GroupIDFromContext(ctx); ok {
		t.Fatal("expected no group id")
	}
}
