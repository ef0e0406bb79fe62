package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"applyd/internal/queue"
	"applyd/internal/testsupport"
)

func TestInsertApplicationWithTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	payload := json.RawMessage(`{"url":"https://boards.example/co/123","company":"Acme","title":"SRE","portal":"greenhouse","extra":{"nested":[1,2,3]}}`)
	taskID, err := store.InsertApplicationWithTask(ctx, &queue.Application{
		URL:     "https://boards.example/co/123",
		Company: "Acme",
		Title:   "SRE",
		Portal:  "greenhouse",
		Payload: payload,
	})
	if err != nil {
		t.Fatalf("InsertApplicationWithTask failed: %v", err)
	}

	task, err := store.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Status != queue.StatusQueued {
		t.Fatalf("expected initial status QUEUED, got %s", task.Status)
	}
	if task.Attempts != 0 {
		t.Fatalf("expected attempts 0, got %d", task.Attempts)
	}

	app, err := store.GetApplication(ctx, task.ApplicationID)
	if err != nil {
		t.Fatalf("GetApplication failed: %v", err)
	}
	if string(app.Payload) != string(payload) {
		t.Fatalf("payload did not round-trip: %s", app.Payload)
	}
	if app.Portal != "greenhouse" || app.Company != "Acme" {
		t.Fatalf("unexpected application fields: %#v", app)
	}
}

func TestClaimOldestQueuedIsFIFO(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.MustEnqueue(t, store, "acme", "SRE", "greenhouse")
	second := testsupport.MustEnqueue(t, store, "globex", "Platform Engineer", "lever")

	claim, err := store.ClaimOldestQueued(ctx)
	if err != nil {
		t.Fatalf("ClaimOldestQueued failed: %v", err)
	}
	if claim == nil || claim.Task.ID != first {
		t.Fatalf("expected oldest task %d claimed, got %#v", first, claim)
	}
	if claim.Task.Status != queue.StatusInProgress {
		t.Fatalf("expected claimed task IN_PROGRESS, got %s", claim.Task.Status)
	}
	if claim.Application.Company != "acme" {
		t.Fatalf("expected joined application, got %#v", claim.Application)
	}

	claim, err = store.ClaimOldestQueued(ctx)
	if err != nil {
		t.Fatalf("second claim failed: %v", err)
	}
	if claim == nil || claim.Task.ID != second {
		t.Fatalf("expected task %d claimed second, got %#v", second, claim)
	}

	claim, err = store.ClaimOldestQueued(ctx)
	if err != nil {
		t.Fatalf("empty claim failed: %v", err)
	}
	if claim != nil {
		t.Fatalf("expected no claim on drained queue, got %#v", claim)
	}
}

func TestConcurrentClaimsWinOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustEnqueue(t, store, "acme", "SRE", "greenhouse")

	const claimants = 8
	var wg sync.WaitGroup
	results := make([]*queue.Claim, claimants)
	errs := make([]error, claimants)
	wg.Add(claimants)
	for i := 0; i < claimants; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.ClaimOldestQueued(ctx)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < claimants; i++ {
		if errs[i] != nil {
			t.Fatalf("claimant %d errored: %v", i, errs[i])
		}
		if results[i] != nil {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winning claim, got %d", winners)
	}
}

func TestMergeTaskArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	taskID := testsupport.MustEnqueue(t, store, "acme", "SRE", "greenhouse")

	if err := store.MergeTaskArtifacts(ctx, taskID, map[string]any{"a": float64(1)}); err != nil {
		t.Fatalf("first merge failed: %v", err)
	}
	if err := store.MergeTaskArtifacts(ctx, taskID, map[string]any{"b": float64(2)}); err != nil {
		t.Fatalf("second merge failed: %v", err)
	}

	task, err := store.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Artifacts["a"] != float64(1) || task.Artifacts["b"] != float64(2) {
		t.Fatalf("expected merged artifacts {a:1,b:2}, got %#v", task.Artifacts)
	}

	// Last write wins per key.
	if err := store.MergeTaskArtifacts(ctx, taskID, map[string]any{"a": float64(9)}); err != nil {
		t.Fatalf("overwrite merge failed: %v", err)
	}
	task, err = store.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Artifacts["a"] != float64(9) || task.Artifacts["b"] != float64(2) {
		t.Fatalf("expected {a:9,b:2}, got %#v", task.Artifacts)
	}
}

func TestMergeTaskArtifactsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	err := store.MergeTaskArtifacts(context.Background(), 9999, map[string]any{"a": 1})
	if !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTaskStatusFromRejectsUnknown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	taskID := testsupport.MustEnqueue(t, store, "acme", "SRE", "greenhouse")
	before, err := store.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}

	err = store.UpdateTaskStatusFrom(ctx, taskID, queue.StatusQueued, queue.Status("BOGUS"), nil)
	if !errors.Is(err, queue.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	after, err := store.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if after.Status != before.Status {
		t.Fatalf("status changed by rejected transition: %s", after.Status)
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("updated_at changed by rejected transition: %s vs %s", after.UpdatedAt, before.UpdatedAt)
	}
}

func TestUpdateTaskStatusFromErrorHandling(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	taskID := testsupport.MustEnqueue(t, store, "acme", "SRE", "greenhouse")

	msg := "portal timed out"
	if err := store.UpdateTaskStatusFrom(ctx, taskID, queue.StatusQueued, queue.StatusFailed, &msg); err != nil {
		t.Fatalf("UpdateTaskStatusFrom failed: %v", err)
	}
	task, err := store.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Error != msg {
		t.Fatalf("expected error text persisted, got %q", task.Error)
	}

	// A status update without error text leaves the stored error alone.
	if err := store.UpdateTaskStatusFrom(ctx, taskID, queue.StatusFailed, queue.StatusQueued, nil); err != nil {
		t.Fatalf("UpdateTaskStatusFrom failed: %v", err)
	}
	task, err = store.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Error != msg {
		t.Fatalf("error text should survive a plain status update, got %q", task.Error)
	}

	// A missing task matches no row either; callers re-read to tell the
	// two apart.
	if err := store.UpdateTaskStatusFrom(ctx, 9999, queue.StatusQueued, queue.StatusDone, nil); !errors.Is(err, queue.ErrStaleStatus) {
		t.Fatalf("expected ErrStaleStatus for missing task, got %v", err)
	}
}

func TestUpdateTaskStatusFromRefusesStaleWrite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	taskID := testsupport.MustEnqueue(t, store, "acme", "SRE", "greenhouse")

	// The guarded update only fires when the task still holds the observed
	// status; here another writer notionally moved it already.
	err := store.UpdateTaskStatusFrom(ctx, taskID, queue.StatusSubmitted, queue.StatusCancelled, nil)
	if !errors.Is(err, queue.ErrStaleStatus) {
		t.Fatalf("expected ErrStaleStatus, got %v", err)
	}
	task, err := store.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Status != queue.StatusQueued {
		t.Fatalf("stale write changed status to %s", task.Status)
	}

	if err := store.UpdateTaskStatusFrom(ctx, taskID, queue.StatusQueued, queue.StatusInProgress, nil); err != nil {
		t.Fatalf("UpdateTaskStatusFrom failed: %v", err)
	}
	task, err = store.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Status != queue.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS after guarded update, got %s", task.Status)
	}
}

func TestIncrementAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	taskID := testsupport.MustEnqueue(t, store, "acme", "SRE", "greenhouse")
	for i := 1; i <= 3; i++ {
		if err := store.IncrementAttempts(ctx, taskID); err != nil {
			t.Fatalf("IncrementAttempts failed: %v", err)
		}
		attempts, err := store.TaskAttempts(ctx, taskID)
		if err != nil {
			t.Fatalf("TaskAttempts failed: %v", err)
		}
		if attempts != i {
			t.Fatalf("expected attempts %d, got %d", i, attempts)
		}
	}

	if err := store.IncrementAttempts(ctx, 9999); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListApplicationsProjectsLatestTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	taskID := testsupport.MustEnqueue(t, store, "acme", "SRE", "greenhouse")
	testsupport.MustEnqueue(t, store, "globex", "Platform Engineer", "lever")

	msg := "boom"
	if err := store.UpdateTaskStatusFrom(ctx, taskID, queue.StatusQueued, queue.StatusFailed, &msg); err != nil {
		t.Fatalf("UpdateTaskStatusFrom failed: %v", err)
	}
	if err := store.MergeTaskArtifacts(ctx, taskID, map[string]any{"screenshot": "s.png"}); err != nil {
		t.Fatalf("MergeTaskArtifacts failed: %v", err)
	}

	list, err := store.ListApplications(ctx)
	if err != nil {
		t.Fatalf("ListApplications failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 applications, got %d", len(list))
	}
	// Newest application first.
	if list[0].Company != "globex" || list[0].Status != queue.StatusQueued {
		t.Fatalf("unexpected first entry: %#v", list[0])
	}
	if list[1].Company != "acme" || list[1].Status != queue.StatusFailed {
		t.Fatalf("unexpected second entry: %#v", list[1])
	}
	if list[1].Error != "boom" || list[1].Artifacts["screenshot"] != "s.png" {
		t.Fatalf("projection missing error/artifacts: %#v", list[1])
	}
}

func TestRetryFailedClearsError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	taskID := testsupport.MustEnqueue(t, store, "acme", "SRE", "greenhouse")
	msg := "boom"
	if err := store.UpdateTaskStatusFrom(ctx, taskID, queue.StatusQueued, queue.StatusFailed, &msg); err != nil {
		t.Fatalf("UpdateTaskStatusFrom failed: %v", err)
	}

	count, err := store.RetryFailed(ctx, taskID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 task re-queued, got %d", count)
	}

	task, err := store.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Status != queue.StatusQueued || task.Error != "" {
		t.Fatalf("expected QUEUED with cleared error, got %s %q", task.Status, task.Error)
	}
}

func TestStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustEnqueue(t, store, "acme", "SRE", "greenhouse")
	taskID := testsupport.MustEnqueue(t, store, "globex", "Platform Engineer", "lever")
	if err := store.UpdateTaskStatusFrom(ctx, taskID, queue.StatusQueued, queue.StatusDone, nil); err != nil {
		t.Fatalf("UpdateTaskStatusFrom failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusQueued] != 1 || stats[queue.StatusDone] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}
