package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"applyd/internal/engine"
	"applyd/internal/logging"
	"applyd/internal/queue"
	"applyd/internal/testsupport"
)

type fixture struct {
	base   string
	engine *engine.Engine
	store  *queue.Store
	client *http.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	eng := engine.New(store, logging.NewNop(), cfg.Workflow.MaxRetries)

	srv := New(cfg, eng, store, nil, logging.NewNop())
	if srv == nil {
		t.Fatal("New returned nil server for non-empty bind")
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		srv.Stop()
	})
	return &fixture{
		base:   "http://" + srv.Addr(),
		engine: eng,
		store:  store,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (f *fixture) postJSON(t *testing.T, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := f.client.Post(f.base+path, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, buf.Bytes()
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := f.client.Get(f.base + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, buf.Bytes()
}

func TestApplyBatchPartialFailure(t *testing.T) {
	f := newFixture(t)

	resp, body := f.postJSON(t, "/api/apply", `{"jobs":[
		{"url":"https://boards.example/1","company":"Acme","title":"Dev","portal":"lever"},
		{"url":"https://boards.example/2","company":"Beta","title":"SRE","source":"Greenhouse"}
	]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var decoded ApplyResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded.Queued != 2 || len(decoded.Results) != 2 {
		t.Fatalf("response = %+v, want 2 queued entries", decoded)
	}
	for i, entry := range decoded.Results {
		if entry.TaskID == 0 || entry.Error != "" {
			t.Errorf("entry %d = %+v, want task id and no error", i, entry)
		}
	}

	stats, err := f.store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[queue.StatusQueued] != 2 {
		t.Fatalf("queued = %d, want 2", stats[queue.StatusQueued])
	}
}

func TestApplyRejectsEmptyBatch(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.postJSON(t, "/api/apply", `{"jobs":[]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp, _ = f.postJSON(t, "/api/apply", `{"jobs": oops`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for malformed body", resp.StatusCode)
	}
}

func TestApplicationsListing(t *testing.T) {
	f := newFixture(t)
	taskID, err := f.engine.Enqueue(context.Background(),
		json.RawMessage(`{"url":"https://boards.example/9","company":"Acme","title":"Dev","portal":"lever"}`))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	resp, body := f.get(t, "/api/applications")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var listing ApplicationsResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listing.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(listing.Items))
	}
	item := listing.Items[0]
	if item.TaskID != taskID || item.Status != queue.StatusQueued || item.Company != "Acme" {
		t.Errorf("item = %+v", item)
	}

	resp, body = f.get(t, fmt.Sprintf("/api/applications/%d", item.ApplicationID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var single ApplicationItem
	if err := json.Unmarshal(body, &single); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if single.ApplicationID != item.ApplicationID {
		t.Errorf("single = %+v", single)
	}
}

func TestApplicationNotFound(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.get(t, "/api/applications/999")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	resp, _ = f.get(t, "/api/applications/banana")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for non-numeric id", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.Enqueue(context.Background(), json.RawMessage(`{"company":"Acme","title":"Dev"}`)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	resp, body := f.get(t, "/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var decoded StatusResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Running || decoded.PID == 0 {
		t.Errorf("status = %+v", decoded)
	}
	if decoded.Counts["QUEUED"] != 1 {
		t.Errorf("counts = %v, want one queued", decoded.Counts)
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)
	resp, body := f.get(t, "/api/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var decoded HealthResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Healthy || !decoded.IntegrityCheck {
		t.Errorf("health = %+v", decoded)
	}
}

func TestSearchUnconfiguredIsUnavailable(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.postJSON(t, "/api/search", `{"roles":["engineer"]}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 without a searcher", resp.StatusCode)
	}
}

func TestDisabledBindReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	store := testsupport.MustOpenStore(t, cfg)
	eng := engine.New(store, logging.NewNop(), cfg.Workflow.MaxRetries)
	srv := New(cfg, eng, store, nil, logging.NewNop())
	if srv != nil {
		t.Fatal("expected nil server for empty bind")
	}
	// nil receivers are no-ops.
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("nil Start: %v", err)
	}
	srv.Stop()
}
