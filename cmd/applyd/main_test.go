package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"applyd/internal/queue"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "applyd.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
api_bind = "127.0.0.1:0"

[workflow]
queue_poll_interval = 1
error_retry_interval = 1

[logging]
format = "json"
level = "error"
`, filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestEnqueueThenListAndStatus(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, cfgPath, "enqueue",
		"--url", "https://boards.example/1",
		"--company", "Acme",
		"--title", "Platform Engineer",
		"--portal", "Greenhouse",
	)
	if err != nil {
		t.Fatalf("enqueue: %v\n%s", err, out)
	}
	if !strings.Contains(out, "queued task 1") {
		t.Fatalf("enqueue output = %q", out)
	}

	out, err = runCLI(t, cfgPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Acme") || !strings.Contains(out, "Queued") {
		t.Fatalf("list output = %q", out)
	}

	out, err = runCLI(t, cfgPath, "queue", "status")
	if err != nil {
		t.Fatalf("queue status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Queued") || !strings.Contains(out, "1") {
		t.Fatalf("status output = %q", out)
	}
}

func TestEnqueueFromJSONFile(t *testing.T) {
	cfgPath := writeTestConfig(t)
	jobsPath := filepath.Join(t.TempDir(), "jobs.json")
	jobs := `[{"company":"Acme","title":"Dev","portal":"lever"},{"company":"Beta","title":"SRE","portal":"greenhouse"}]`
	if err := os.WriteFile(jobsPath, []byte(jobs), 0o644); err != nil {
		t.Fatalf("write jobs: %v", err)
	}

	out, err := runCLI(t, cfgPath, "enqueue", "--file", jobsPath)
	if err != nil {
		t.Fatalf("enqueue: %v\n%s", err, out)
	}
	if !strings.Contains(out, "queued task 1") || !strings.Contains(out, "queued task 2") {
		t.Fatalf("output = %q", out)
	}
}

func TestEnqueueWithoutInputFails(t *testing.T) {
	cfgPath := writeTestConfig(t)
	if _, err := runCLI(t, cfgPath, "enqueue"); err == nil {
		t.Fatal("expected error for empty enqueue")
	}
}

func TestQueueCancelAndRetry(t *testing.T) {
	cfgPath := writeTestConfig(t)
	if out, err := runCLI(t, cfgPath, "enqueue", "--company", "Acme", "--title", "Dev"); err != nil {
		t.Fatalf("enqueue: %v\n%s", err, out)
	}

	out, err := runCLI(t, cfgPath, "queue", "cancel", "1")
	if err != nil {
		t.Fatalf("cancel: %v\n%s", err, out)
	}
	if !strings.Contains(out, "cancelled task 1") {
		t.Fatalf("cancel output = %q", out)
	}

	// Cancelled is terminal; a retry touches nothing.
	out, err = runCLI(t, cfgPath, "queue", "retry")
	if err != nil {
		t.Fatalf("retry: %v\n%s", err, out)
	}
	if !strings.Contains(out, "re-queued 0 task(s)") {
		t.Fatalf("retry output = %q", out)
	}

	out, err = runCLI(t, cfgPath, "queue", "clear")
	if err != nil {
		t.Fatalf("clear: %v\n%s", err, out)
	}
	if !strings.Contains(out, "removed 1 task(s)") {
		t.Fatalf("clear output = %q", out)
	}
}

func TestQueueHealth(t *testing.T) {
	cfgPath := writeTestConfig(t)
	if out, err := runCLI(t, cfgPath, "enqueue", "--company", "Acme", "--title", "Dev"); err != nil {
		t.Fatalf("enqueue: %v\n%s", err, out)
	}
	out, err := runCLI(t, cfgPath, "queue", "health")
	if err != nil {
		t.Fatalf("health: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Integrity: true") || !strings.Contains(out, "Tasks: 1") {
		t.Fatalf("health output = %q", out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v\n%s", err, out.String())
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	cfgPath := writeTestConfig(t)
	shown, err := runCLI(t, cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v\n%s", err, shown)
	}
	if !strings.Contains(shown, "queue_poll_interval") {
		t.Fatalf("show output = %q", shown)
	}
}

func TestHumanizeStatus(t *testing.T) {
	if got := humanizeStatus(queue.StatusInProgress); got != "In Progress" {
		t.Fatalf("humanizeStatus = %q", got)
	}
	if got := humanizeStatus(queue.StatusQueued); got != "Queued" {
		t.Fatalf("humanizeStatus = %q", got)
	}
}
