package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"applyd/internal/config"
	"applyd/internal/engine"
	"applyd/internal/logging"
	"applyd/internal/submit"
	"applyd/internal/tailor"
)

// Tailorer produces submission materials for a claimed job.
type Tailorer interface {
	Tailor(ctx context.Context, job tailor.Job) (map[string]any, error)
}

// Submitter performs the portal submission step.
type Submitter interface {
	Submit(ctx context.Context, sub submit.Submission) (submit.Result, error)
}

// Loop is a single-threaded polling worker: claim a task, run tailoring and
// submission, report the outcome. Collaborator failures are converted into
// report_failure calls and never crash the loop.
type Loop struct {
	engine    *engine.Engine
	tailorer  Tailorer
	submitter Submitter
	logger    *slog.Logger

	pollInterval  time.Duration
	errorInterval time.Duration
}

// New builds a worker loop from the configured intervals.
func New(cfg *config.Config, eng *engine.Engine, t Tailorer, s Submitter, logger *slog.Logger) *Loop {
	return &Loop{
		engine:        eng,
		tailorer:      t,
		submitter:     s,
		logger:        logging.WithComponent(logger, "worker"),
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
	}
}

// Run polls until the context is cancelled. An empty queue idles for the
// poll interval; a claim error backs off for the error interval.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("worker loop started",
		logging.Duration("poll_interval", l.pollInterval),
	)
	for {
		processed, err := l.RunOnce(ctx)
		if ctx.Err() != nil {
			l.logger.Info("worker loop stopped")
			return
		}
		switch {
		case err != nil:
			l.logger.Error("claim failed", logging.Error(err))
			if !sleepCtx(ctx, l.errorInterval) {
				return
			}
		case !processed:
			if !sleepCtx(ctx, l.pollInterval) {
				return
			}
		}
	}
}

// RunOnce claims and processes at most one task. It reports whether a task
// was claimed; the error covers claiming only, since processing failures are
// absorbed into the task's own state.
func (l *Loop) RunOnce(ctx context.Context) (bool, error) {
	item, err := l.engine.ClaimNext(ctx)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}
	l.process(ctx, item)
	return true, nil
}

func (l *Loop) process(ctx context.Context, item *engine.WorkItem) {
	logger := l.logger.With(
		logging.String(logging.FieldRequestID, uuid.NewString()),
		logging.Int64(logging.FieldTaskID, item.TaskID),
		logging.String(logging.FieldPortal, item.Portal),
	)
	logger.Info("processing application",
		logging.String("company", item.Company),
		logging.String("title", item.Title),
		logging.Int("attempt", item.Attempts),
	)

	job := tailor.Job{
		URL:         item.URL,
		Company:     item.Company,
		Title:       item.Title,
		Portal:      item.Portal,
		Description: descriptionFromPayload(item.Payload),
	}

	materials, err := l.tailorer.Tailor(ctx, job)
	if err != nil {
		l.fail(ctx, logger, item.TaskID, "tailoring: "+err.Error())
		return
	}
	if err := l.engine.RecordArtifacts(ctx, item.TaskID, materials); err != nil {
		l.fail(ctx, logger, item.TaskID, "record artifacts: "+err.Error())
		return
	}
	if err := l.engine.MarkDrafted(ctx, item.TaskID); err != nil {
		l.fail(ctx, logger, item.TaskID, "mark drafted: "+err.Error())
		return
	}

	result, err := l.submitter.Submit(ctx, submit.Submission{
		URL:       item.URL,
		Company:   item.Company,
		Title:     item.Title,
		Portal:    item.Portal,
		Materials: materials,
	})
	if err != nil {
		l.fail(ctx, logger, item.TaskID, "submission: "+err.Error())
		return
	}
	if !result.Submitted {
		l.fail(ctx, logger, item.TaskID, "submission did not confirm")
		return
	}

	artifacts := map[string]any{"submitted": true}
	for k, v := range result.Details {
		artifacts[k] = v
	}
	if err := l.engine.ReportSuccess(ctx, item.TaskID, artifacts); err != nil {
		logger.Error("report success failed", logging.Error(err))
		return
	}
	logger.Info("application submitted")
}

func (l *Loop) fail(ctx context.Context, logger *slog.Logger, taskID int64, message string) {
	logger.Warn("application step failed", logging.String("reason", message))
	if err := l.engine.ReportFailure(ctx, taskID, message); err != nil {
		logger.Error("report failure failed", logging.Error(err))
	}
}

// descriptionFromPayload pulls the job description text the connectors put
// on the payload. Absent or malformed payloads yield an empty description.
func descriptionFromPayload(payload json.RawMessage) string {
	if len(payload) == 0 {
		return ""
	}
	var fields struct {
		JDText      string `json:"jd_text"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return ""
	}
	if fields.JDText != "" {
		return fields.JDText
	}
	return fields.Description
}

// sleepCtx waits for d or context cancellation, reporting false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
