package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeProfile()
	c.normalizeSubmit()
	c.normalizeConnectors()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TemplatesDir) == "" {
		c.Paths.TemplatesDir = defaultTemplatesDir
	}
	if c.Paths.TemplatesDir, err = expandPath(c.Paths.TemplatesDir); err != nil {
		return fmt.Errorf("paths.templates_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.MaxRetries < 0 {
		c.Workflow.MaxRetries = defaultMaxRetries
	}
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
}

func (c *Config) normalizeProfile() {
	c.Profile.FirstName = strings.TrimSpace(c.Profile.FirstName)
	c.Profile.LastName = strings.TrimSpace(c.Profile.LastName)
	c.Profile.Email = strings.TrimSpace(c.Profile.Email)
	c.Profile.Phone = strings.TrimSpace(c.Profile.Phone)
	c.Profile.LinkedIn = strings.TrimSpace(c.Profile.LinkedIn)
	c.Profile.Role = strings.ToLower(strings.TrimSpace(c.Profile.Role))
}

func (c *Config) normalizeSubmit() {
	c.Submit.Mode = strings.ToLower(strings.TrimSpace(c.Submit.Mode))
	if c.Submit.Mode == "" {
		c.Submit.Mode = defaultSubmitMode
	}
	c.Submit.WebhookURL = strings.TrimSpace(c.Submit.WebhookURL)
	if c.Submit.RequestTimeout <= 0 {
		c.Submit.RequestTimeout = defaultSubmitTimeout
	}
}

func (c *Config) normalizeConnectors() {
	c.Connectors.GreenhouseBoards = normalizeList(c.Connectors.GreenhouseBoards)
	c.Connectors.LeverCompanies = normalizeList(c.Connectors.LeverCompanies)
	if c.Connectors.RequestTimeout <= 0 {
		c.Connectors.RequestTimeout = defaultConnectorTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
