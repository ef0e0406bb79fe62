package submit

import (
	"context"
	"log/slog"

	"applyd/internal/logging"
)

// DryRun is a submitter that confirms without touching any portal. It is the
// default mode so a misconfigured install never fires real submissions.
type DryRun struct {
	logger *slog.Logger
}

// NewDryRun builds a dry-run submitter.
func NewDryRun(logger *slog.Logger) *DryRun {
	return &DryRun{logger: logging.WithComponent(logger, "submit.dryrun")}
}

func (d *DryRun) Submit(ctx context.Context, sub Submission) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	d.logger.Info("dry-run submission",
		logging.String(logging.FieldPortal, sub.Portal),
		logging.String("company", sub.Company),
		logging.String("title", sub.Title),
	)
	return Result{
		Portal:    sub.Portal,
		Submitted: true,
		Details:   map[string]any{"dry_run": true},
	}, nil
}
