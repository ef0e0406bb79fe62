package main

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"applyd/internal/config"
	"applyd/internal/engine"
	"applyd/internal/logging"
	"applyd/internal/queue"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// cliLogger builds a quiet console logger for one-shot commands; their
// primary output goes to stdout, so diagnostics stay on stderr.
func (c *commandContext) cliLogger() *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil || cfg == nil {
		return logging.NewNop()
	}
	logger, err := logging.New(logging.Options{
		Level:  "warn",
		Format: cfg.Logging.Format,
		Writer: os.Stderr,
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// withStore opens the queue store for a one-shot command and closes it after.
func (c *commandContext) withStore(fn func(cfg *config.Config, store *queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg, c.cliLogger())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

// withEngine layers the queue engine over withStore.
func (c *commandContext) withEngine(fn func(cfg *config.Config, store *queue.Store, eng *engine.Engine) error) error {
	return c.withStore(func(cfg *config.Config, store *queue.Store) error {
		return fn(cfg, store, engine.New(store, c.cliLogger(), cfg.Workflow.MaxRetries))
	})
}
