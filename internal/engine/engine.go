package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"applyd/internal/logging"
	"applyd/internal/queue"
)

// Engine owns the task state machine and retry policy over the queue store.
// It is the only writer; workers and the API surface go through it.
type Engine struct {
	store      *queue.Store
	logger     *slog.Logger
	maxRetries int
}

// WorkItem bundles a claimed task with the denormalized job fields downstream
// collaborators need, so no second round trip is required.
type WorkItem struct {
	TaskID        int64
	ApplicationID int64
	Status        queue.Status
	Attempts      int
	URL           string
	Company       string
	Title         string
	Portal        string
	Payload       json.RawMessage
}

// jobFields are the decoded boundary fields of an enqueued payload.
type jobFields struct {
	URL     string `json:"url"`
	Company string `json:"company"`
	Title   string `json:"title"`
	Portal  string `json:"portal"`
	Source  string `json:"source"`
}

// New constructs an engine. maxRetries is the attempt count at which a
// failing task stops re-queueing; values below zero collapse to zero.
func New(store *queue.Store, logger *slog.Logger, maxRetries int) *Engine {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Engine{
		store:      store,
		logger:     logging.WithComponent(logger, "engine"),
		maxRetries: maxRetries,
	}
}

// Enqueue creates an application row plus its initial QUEUED task from a raw
// job payload and returns the new task id. String fields are trimmed and the
// portal identifier lowercased; the payload itself is stored verbatim. The
// two inserts share one transaction.
func (e *Engine) Enqueue(ctx context.Context, payload json.RawMessage) (int64, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	var fields jobFields
	if err := json.Unmarshal(payload, &fields); err != nil {
		return 0, fmt.Errorf("decode job payload: %w", err)
	}

	portal := fields.Portal
	if portal == "" {
		portal = fields.Source
	}
	app := &queue.Application{
		URL:     strings.TrimSpace(fields.URL),
		Company: strings.TrimSpace(fields.Company),
		Title:   strings.TrimSpace(fields.Title),
		Portal:  strings.ToLower(strings.TrimSpace(portal)),
		Payload: payload,
	}

	taskID, err := e.store.InsertApplicationWithTask(ctx, app)
	if err != nil {
		return 0, err
	}
	e.logger.Info("application enqueued",
		logging.Int64(logging.FieldTaskID, taskID),
		logging.Int64(logging.FieldAppID, app.ID),
		logging.String(logging.FieldPortal, app.Portal),
		logging.String("company", app.Company),
	)
	return taskID, nil
}

// ClaimNext atomically claims the oldest QUEUED task, bumps its attempt
// counter, and returns a WorkItem. It returns nil when no work is available.
// The claim and the increment are separate store calls: a crash between them
// loses one increment but never double-counts a retried claim.
func (e *Engine) ClaimNext(ctx context.Context) (*WorkItem, error) {
	claim, err := e.store.ClaimOldestQueued(ctx)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, nil
	}

	if err := e.store.IncrementAttempts(ctx, claim.Task.ID); err != nil {
		return nil, fmt.Errorf("increment attempts for task %d: %w", claim.Task.ID, err)
	}

	item := &WorkItem{
		TaskID:        claim.Task.ID,
		ApplicationID: claim.Application.ID,
		Status:        queue.StatusInProgress,
		Attempts:      claim.Task.Attempts + 1,
		URL:           claim.Application.URL,
		Company:       claim.Application.Company,
		Title:         claim.Application.Title,
		Portal:        claim.Application.Portal,
		Payload:       claim.Application.Payload,
	}
	e.logger.Info("task claimed",
		logging.Int64(logging.FieldTaskID, item.TaskID),
		logging.Int64(logging.FieldAppID, item.ApplicationID),
		logging.String(logging.FieldPortal, item.Portal),
		logging.Int("attempts", item.Attempts),
	)
	return item, nil
}

// RecordArtifacts merges a partial artifact mapping onto the task, usable at
// any point mid-pipeline independent of status transitions.
func (e *Engine) RecordArtifacts(ctx context.Context, taskID int64, artifacts map[string]any) error {
	if len(artifacts) == 0 {
		return nil
	}
	return e.store.MergeTaskArtifacts(ctx, taskID, artifacts)
}

// MarkDrafted records that tailoring materials were produced. The DRAFTED
// waypoint is optional; pipelines that skip it go straight to SUBMITTED.
func (e *Engine) MarkDrafted(ctx context.Context, taskID int64) error {
	return e.Transition(ctx, taskID, queue.StatusDrafted, nil)
}

// ReportFailure applies the retry policy after a processing failure: while
// the attempt count is below the retry budget the task returns to QUEUED with
// the error persisted for the next claimant; at or past the budget it becomes
// FAILED. Attempts are never reset, so the budget is consumed monotonically.
func (e *Engine) ReportFailure(ctx context.Context, taskID int64, message string) error {
	attempts, err := e.store.TaskAttempts(ctx, taskID)
	if err != nil {
		return err
	}

	next := queue.StatusQueued
	if attempts >= e.maxRetries {
		next = queue.StatusFailed
	}
	if err := e.Transition(ctx, taskID, next, &message); err != nil {
		return err
	}
	e.logger.Warn("task failed",
		logging.Int64(logging.FieldTaskID, taskID),
		logging.Int("attempts", attempts),
		logging.String("next_status", string(next)),
		logging.String("error", message),
	)
	return nil
}

// ReportSuccess merges final artifacts and walks the task through SUBMITTED
// to DONE. SUBMITTED is transient bookkeeping; DONE is the durable terminal
// marker.
func (e *Engine) ReportSuccess(ctx context.Context, taskID int64, artifacts map[string]any) error {
	if err := e.RecordArtifacts(ctx, taskID, artifacts); err != nil {
		return err
	}
	if err := e.Transition(ctx, taskID, queue.StatusSubmitted, nil); err != nil {
		return err
	}
	if err := e.Transition(ctx, taskID, queue.StatusDone, nil); err != nil {
		return err
	}
	e.logger.Info("task completed", logging.Int64(logging.FieldTaskID, taskID))
	return nil
}

// Cancel marks a task CANCELLED. The edge exists for administrative action;
// once taken the task accepts no further transitions.
func (e *Engine) Cancel(ctx context.Context, taskID int64) error {
	return e.Transition(ctx, taskID, queue.StatusCancelled, nil)
}

// Retry re-queues failed tasks and clears their stored error. With no ids it
// retries every FAILED task.
func (e *Engine) Retry(ctx context.Context, ids ...int64) (int64, error) {
	return e.store.RetryFailed(ctx, ids...)
}

// Transition validates and applies a status change. Statuses outside the
// closed enum are rejected with ErrInvalidStatus; edges the state machine
// forbids (anything out of DONE or CANCELLED, backwards moves other than the
// retry edge) are rejected with ErrInvalidTransition. Neither rejection
// writes anything.
//
// The write is a compare-and-swap against the observed status, so a
// concurrent writer moving the task first never has its move silently
// overwritten: the lost race re-reads and re-validates against the fresh
// status instead.
func (e *Engine) Transition(ctx context.Context, taskID int64, to queue.Status, errText *string) error {
	if !queue.KnownStatus(to) {
		return fmt.Errorf("%w: %q", queue.ErrInvalidStatus, to)
	}
	for {
		task, err := e.store.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if !queue.CanTransition(task.Status, to) {
			return fmt.Errorf("%w: %s -> %s", queue.ErrInvalidTransition, task.Status, to)
		}
		err = e.store.UpdateTaskStatusFrom(ctx, taskID, task.Status, to, errText)
		if !errors.Is(err, queue.ErrStaleStatus) {
			return err
		}
	}
}

// MaxRetries exposes the configured retry budget.
func (e *Engine) MaxRetries() int {
	return e.maxRetries
}
