package testsupport

import (
	"context"
	"encoding/json"
	"testing"

	"applyd/internal/config"
	"applyd/internal/logging"
	"applyd/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustEnqueue creates an application plus its initial QUEUED task and returns
// the task id.
func MustEnqueue(t testing.TB, store *queue.Store, company, title, portal string) int64 {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"url":     "https://boards.example/" + company,
		"company": company,
		"title":   title,
		"portal":  portal,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	taskID, err := store.InsertApplicationWithTask(context.Background(), &queue.Application{
		URL:     "https://boards.example/" + company,
		Company: company,
		Title:   title,
		Portal:  portal,
		Payload: payload,
	})
	if err != nil {
		t.Fatalf("InsertApplicationWithTask: %v", err)
	}
	return taskID
}
