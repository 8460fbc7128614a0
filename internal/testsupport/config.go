package testsupport

import (
	"path/filepath"
	"testing"

	"greenlight/internal/config"
	"greenlight/internal/project"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Gemini.APIKey = "test"
	cfg.Gemini.PortraitDelayMS = 0
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ExportDir = filepath.Join(base, "exports")
	cfg.Workflow.AutosaveDebounceMillis = 10
	cfg.Workflow.AutosaveIntervalSeconds = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithAPIKey sets the Gemini API key on the test config.
func WithAPIKey(key string) ConfigOption {
	return func(c *config.Config) {
		c.Gemini.APIKey = key
	}
}

// MustOpenStore opens a project store against the test config and registers
// cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *project.Store {
	t.Helper()

	store, err := project.Open(cfg)
	if err != nil {
		t.Fatalf("open project store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
