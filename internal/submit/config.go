package submit

import (
	"fmt"
	"log/slog"
	"time"

	"applyd/internal/config"
)

// FromConfig builds the configured submitter wrapped in a registry, so
// callers can later register portal-specific overrides on top of it.
func FromConfig(cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	var fallback Submitter
	switch cfg.Submit.Mode {
	case "dryrun":
		fallback = NewDryRun(logger)
	case "webhook":
		timeout := time.Duration(cfg.Submit.RequestTimeout) * time.Second
		fallback = NewWebhook(cfg.Submit.WebhookURL, timeout, logger)
	default:
		return nil, fmt.Errorf("unknown submit mode %q", cfg.Submit.Mode)
	}
	return NewRegistry(fallback), nil
}
