package testsupport

import (
	"path/filepath"
	"testing"

	"applyd/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.TemplatesDir = filepath.Join(base, "templates")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.ErrorRetryInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMaxRetries overrides the retry budget on the test config.
func WithMaxRetries(n int) ConfigOption {
	return func(c *config.Config) {
		c.Workflow.MaxRetries = n
	}
}

// WithWebhookSubmit switches the test config to webhook submission.
func WithWebhookSubmit(url string) ConfigOption {
	return func(c *config.Config) {
		c.Submit.Mode = "webhook"
		c.Submit.WebhookURL = url
	}
}
