package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ListApplications returns every application joined with its newest task's
// status, attempts, error, and artifacts, newest application first.
func (s *Store) ListApplications(ctx context.Context) ([]*ApplicationStatus, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `
        SELECT
            a.id, a.url, a.company, a.title, a.portal, a.job_json, a.created_at, a.updated_at,
            COALESCE((SELECT id FROM tasks WHERE application_id = a.id ORDER BY id DESC LIMIT 1), 0),
            COALESCE((SELECT status FROM tasks WHERE application_id = a.id ORDER BY id DESC LIMIT 1), ?),
            COALESCE((SELECT attempts FROM tasks WHERE application_id = a.id ORDER BY id DESC LIMIT 1), 0),
            (SELECT error FROM tasks WHERE application_id = a.id ORDER BY id DESC LIMIT 1),
            COALESCE((SELECT artifacts_json FROM tasks WHERE application_id = a.id ORDER BY id DESC LIMIT 1), '{}')
        FROM applications a
        ORDER BY a.id DESC`,
		StatusQueued,
	)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []*ApplicationStatus
	for rows.Next() {
		entry, err := s.scanApplicationStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// GetApplicationStatus returns the listing projection for one application.
func (s *Store) GetApplicationStatus(ctx context.Context, id int64) (*ApplicationStatus, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `
        SELECT
            a.id, a.url, a.company, a.title, a.portal, a.job_json, a.created_at, a.updated_at,
            COALESCE((SELECT id FROM tasks WHERE application_id = a.id ORDER BY id DESC LIMIT 1), 0),
            COALESCE((SELECT status FROM tasks WHERE application_id = a.id ORDER BY id DESC LIMIT 1), ?),
            COALESCE((SELECT attempts FROM tasks WHERE application_id = a.id ORDER BY id DESC LIMIT 1), 0),
            (SELECT error FROM tasks WHERE application_id = a.id ORDER BY id DESC LIMIT 1),
            COALESCE((SELECT artifacts_json FROM tasks WHERE application_id = a.id ORDER BY id DESC LIMIT 1), '{}')
        FROM applications a
        WHERE a.id = ?`,
		StatusQueued, id,
	)
	entry, err := s.scanApplicationStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) scanApplicationStatus(scanner interface{ Scan(dest ...any) error }) (*ApplicationStatus, error) {
	var (
		id           int64
		url          sql.NullString
		company      sql.NullString
		title        sql.NullString
		portal       sql.NullString
		jobJSON      sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		taskID       int64
		statusStr    string
		attempts     int
		errText      sql.NullString
		artifactsRaw sql.NullString
	)
	if err := scanner.Scan(
		&id, &url, &company, &title, &portal, &jobJSON, &createdRaw, &updatedRaw,
		&taskID, &statusStr, &attempts, &errText, &artifactsRaw,
	); err != nil {
		return nil, err
	}

	entry := &ApplicationStatus{
		Application: Application{
			ID:      id,
			URL:     url.String,
			Company: company.String,
			Title:   title.String,
			Portal:  portal.String,
			Payload: []byte(jobJSON.String),
		},
		TaskID:    taskID,
		Status:    Status(statusStr),
		Attempts:  attempts,
		Error:     errText.String,
		Artifacts: s.decodeArtifacts(taskID, artifactsRaw.String),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

// Stats returns a count of tasks grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// RetryFailed moves failed tasks back to QUEUED and clears their error text.
// With no ids it retries every failed task; otherwise only the named ids that
// are currently FAILED. Returns the number of tasks re-queued.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		res, err := s.execWithRetry(ctx,
			`UPDATE tasks SET status = ?, error = NULL, updated_at = ? WHERE status = ?`,
			StatusQueued, nowStamp(), StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed tasks: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusQueued, nowStamp(), StatusFailed)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET status = ?, error = NULL, updated_at = ? WHERE status = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry selected tasks: %w", err)
	}
	return res.RowsAffected()
}

// ClearTerminal removes DONE and CANCELLED tasks together with applications
// that no longer have any tasks. Returns the number of tasks removed.
func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM tasks WHERE status IN (?, ?)`,
			StatusDone, StatusCancelled,
		)
		if err != nil {
			return fmt.Errorf("clear terminal tasks: %w", err)
		}
		removed, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM applications WHERE id NOT IN (SELECT DISTINCT application_id FROM tasks)`,
		); err != nil {
			return fmt.Errorf("clear orphaned applications: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TablesPresent    []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalTasks       int
	Error            string
}

// CheckHealth returns diagnostic information about the queue database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("queue database path is unknown")
	}
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat queue database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping queue database: %w", err)
	}
	health.DatabaseReadable = true

	for _, spec := range []struct {
		table    string
		required []column
	}{
		{"applications", applicationColumns},
		{"tasks", taskColumns},
	} {
		exists, err := s.tableExists(connCtx, spec.table)
		if err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("check table %s: %w", spec.table, err)
		}
		if !exists {
			continue
		}
		health.TablesPresent = append(health.TablesPresent, spec.table)

		present, err := s.TableColumns(connCtx, spec.table)
		if err != nil {
			health.Error = err.Error()
			return health, err
		}
		presentSet := make(map[string]struct{}, len(present))
		for _, col := range present {
			presentSet[col] = struct{}{}
		}
		for _, col := range spec.required {
			if _, ok := presentSet[col.name]; !ok {
				health.MissingColumns = append(health.MissingColumns, spec.table+"."+col.name)
			}
		}
	}

	row := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM tasks")
	if err := row.Scan(&health.TotalTasks); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count tasks: %w", err)
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}
