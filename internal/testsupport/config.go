package testsupport

import (
	"path/filepath"
	"testing"

	"roadeye/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique temp state directory per
// test. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Service.BaseURL = "http://127.0.0.1:0"
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithServiceURL points the config at a test job service.
func WithServiceURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Service.BaseURL = url
	}
}

// WithUploadMode sets the upload transport.
func WithUploadMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upload.Mode = mode
	}
}

// WithPollingDisabled turns off status polling.
func WithPollingDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Polling.Enabled = false
	}
}

// WithNtfyTopic sets the notification endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithDefaultAssets sets the default asset categories.
func WithDefaultAssets(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Assets.Default = names
	}
}

// WithPollIntervals sets the queued, processing, and retry waits in seconds.
func WithPollIntervals(queued, processing, retry int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Polling.QueuedInterval = queued
		b.cfg.Polling.ProcessingInterval = processing
		b.cfg.Polling.RetryInterval = retry
	}
}
