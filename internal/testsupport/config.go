package testsupport

import (
	"path/filepath"
	"testing"

	"crate/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Discogs.Username = "digger"
	cfgVal.Discogs.APIToken = "test-token"
	cfgVal.Discogs.RequestIntervalMS = 0
	cfgVal.Backup.Dir = filepath.Join(base, "backup")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Metrics.TextfilePath = filepath.Join(base, "state", "crate.prom")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBaseURL points the Discogs client at a test server.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Discogs.BaseURL = url
	}
}

// WithFormats replaces the output format selection.
func WithFormats(formats ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backup.OutputFormats = append([]string(nil), formats...)
	}
}

// WithRemoveMissingLists toggles deletion of orphaned lists.
func WithRemoveMissingLists(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backup.RemoveMissingLists = enabled
	}
}

// WithMetrics enables the Prometheus textfile.
func WithMetrics() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.Enabled = true
	}
}

// WithNtfyTopic points notifications at topic.
func WithNtfyTopic(topic string, onSuccess bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
		b.cfg.Notifications.OnSuccess = onSuccess
	}
}
