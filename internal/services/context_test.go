package services_test

import (
	"context"
	"testing"

	"greenlight/internal/services"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithProjectID(ctx, 42)
	ctx = services.WithStage(ctx, "stage2")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.ProjectIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("project id round trip failed: %d %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "stage2" {
		t.Fatalf("stage round trip failed: %q %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id round trip failed: %q %v", rid, ok)
	}
}

func TestContextEmptyValuesIgnored(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected empty stage to be ignored")
	}
	ctx = services.WithRequestID(context.Background(), "")
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("expected empty request id to be ignored")
	}
}
