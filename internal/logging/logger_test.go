package logging

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"greenlight/internal/services"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		" Debug ": slog.LevelDebug,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleHandlerRendersAttrs(t *testing.T) {
	var sb strings.Builder
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(writerFunc(func(p []byte) (int, error) {
		sb.Write(p)
		return len(p), nil
	}), lvl))

	logger.Info("stage started", String(FieldStage, "stage1"))
	out := sb.String()
	if !strings.Contains(out, "stage started") || !strings.Contains(out, "stage=stage1") {
		t.Fatalf("unexpected console output: %q", out)
	}
}

func TestWithContextStampsFields(t *testing.T) {
	ctx := services.WithProjectID(context.Background(), 7)
	ctx = services.WithStage(ctx, "stage3")

	fields := ContextFields(ctx)
	keys := make(map[string]bool, len(fields))
	for _, f := range fields {
		keys[f.Key] = true
	}
	if !keys[FieldProjectID] || !keys[FieldStage] {
		t.Fatalf("missing context fields: %v", keys)
	}
}

type writerFunc func([]byte) (int, error)

func (w writerFunc) Write(p []byte) (int, error) { return w(p) }
