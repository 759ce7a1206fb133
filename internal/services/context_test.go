package services_test

import (
	"context"
	"testing"

	"seqpoll/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunName(ctx, "200101_INSTR1_0001_AVENDOR1")
	ctx = services.WithStage(ctx, "demultiplex")
	ctx = services.WithLane(ctx, 3)
	ctx = services.WithRequestID(ctx, "req-123")

	if name, ok := services.RunNameFromContext(ctx); !ok || name != "200101_INSTR1_0001_AVENDOR1" {
		t.Fatalf("unexpected run name: %v %v", name, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "demultiplex" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if lane, ok := services.LaneFromContext(ctx); !ok || lane != 3 {
		t.Fatalf("unexpected lane: %v %v", lane, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithLane(ctx, 0)
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.LaneFromContext(ctx); ok {
		t.Fatal("expected no lane value")
	}
}
