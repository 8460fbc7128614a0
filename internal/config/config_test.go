package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"greenlight/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Fatalf("expected env fallback api key, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.RetryAttempts != 4 {
		t.Fatalf("expected default retry attempts 4, got %d", cfg.Gemini.RetryAttempts)
	}
	if cfg.Workflow.AutosaveDebounceMillis != 1500 {
		t.Fatalf("unexpected debounce default: %d", cfg.Workflow.AutosaveDebounceMillis)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[gemini]
api_key = "  key-123  "
base_url = "https://example.test/v1/"

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Gemini.APIKey != "key-123" {
		t.Fatalf("expected trimmed api key, got %q", cfg.Gemini.APIKey)
	}
	if strings.HasSuffix(cfg.Gemini.BaseURL, "/") {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Gemini.BaseURL)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected lowercased logging values, got %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
}

func TestValidateRejectsMissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "missing.toml")
	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected validation error for missing api key")
	}
	if !strings.Contains(err.Error(), "gemini.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadLogging(t *testing.T) {
	cfg := config.Default()
	cfg.Gemini.APIKey = "k"
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected logging format rejection")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "sample-key")

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Gemini.TextModel == "" {
		t.Fatal("expected sample to carry a text model")
	}
}
