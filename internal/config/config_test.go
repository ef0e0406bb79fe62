package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"applyd/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	loaded, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load with missing file failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file to report exists=false")
	}
	if loaded.Workflow.MaxRetries != 2 {
		t.Fatalf("expected default max_retries 2, got %d", loaded.Workflow.MaxRetries)
	}
	if loaded.Workflow.QueuePollInterval != 3 {
		t.Fatalf("expected default queue_poll_interval 3, got %d", loaded.Workflow.QueuePollInterval)
	}
	if loaded.Submit.Mode != "dryrun" {
		t.Fatalf("expected default submit mode dryrun, got %q", loaded.Submit.Mode)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[workflow]
max_retries = 5
workers = 3

[profile]
role = "  SRE "

[submit]
mode = "DryRun"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s to be found, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Workflow.MaxRetries != 5 {
		t.Fatalf("expected max_retries 5, got %d", cfg.Workflow.MaxRetries)
	}
	if cfg.Workflow.Workers != 3 {
		t.Fatalf("expected workers 3, got %d", cfg.Workflow.Workers)
	}
	if cfg.Profile.Role != "sre" {
		t.Fatalf("expected normalized role sre, got %q", cfg.Profile.Role)
	}
	if cfg.Submit.Mode != "dryrun" {
		t.Fatalf("expected normalized submit mode dryrun, got %q", cfg.Submit.Mode)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bad submit mode",
			content: "[submit]\nmode = \"carrier-pigeon\"\n",
			want:    "submit.mode",
		},
		{
			name:    "webhook without url",
			content: "[submit]\nmode = \"webhook\"\n",
			want:    "submit.webhook_url",
		},
		{
			name:    "bad log format",
			content: "[logging]\nformat = \"xml\"\n",
			want:    "logging.format",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tc.name, " ", "-")+".toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error writing over existing config")
	}
}
