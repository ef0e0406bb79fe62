package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const taskColumnsSQL = "id, application_id, status, attempts, error, artifacts_json, created_at, updated_at"

// Claim bundles the task won by ClaimOldestQueued with its owning
// application, so callers get the denormalized job fields without a second
// round trip.
type Claim struct {
	Task        *Task
	Application *Application
}

// GetTask fetches a task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+taskColumnsSQL+` FROM tasks WHERE id = ?`, id,
	)
	task, err := s.scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// TaskAttempts returns the current attempt count for a task.
func (s *Store) TaskAttempts(ctx context.Context, id int64) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT attempts FROM tasks WHERE id = ?`, id,
	).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("task attempts: %w", err)
	}
	return attempts, nil
}

// UpdateTaskStatusFrom sets a task's status only if the task still holds the
// observed from status, so a validated transition cannot overwrite a
// concurrent writer's move. A non-nil errText also persists the error column;
// a nil errText leaves the stored error untouched. Zero rows affected reports
// ErrStaleStatus; the caller re-reads to distinguish a lost race from a
// missing task.
func (s *Store) UpdateTaskStatusFrom(ctx context.Context, id int64, from, to Status, errText *string) error {
	if !KnownStatus(to) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	now := nowStamp()

	var (
		res sql.Result
		err error
	)
	if errText == nil {
		res, err = s.execWithRetry(ctx,
			`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			to, now, id, from,
		)
	} else {
		res, err = s.execWithRetry(ctx,
			`UPDATE tasks SET status = ?, error = ?, updated_at = ? WHERE id = ? AND status = ?`,
			to, nullableString(*errText), now, id, from,
		)
	}
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// ClearTaskError resets the stored error text, used by the administrative
// retry edge.
func (s *Store) ClearTaskError(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET error = NULL, updated_at = ? WHERE id = ?`,
		nowStamp(), id,
	)
	if err != nil {
		return fmt.Errorf("clear task error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementAttempts bumps a task's attempt counter by one.
func (s *Store) IncrementAttempts(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET attempts = attempts + 1, updated_at = ? WHERE id = ?`,
		nowStamp(), id,
	)
	if err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MergeTaskArtifacts overlays the partial mapping onto the task's stored
// artifacts. The read-modify-write runs inside one transaction so a racing
// status update cannot make the merge lose keys. Existing keys not named in
// partial survive; keys named in partial win.
func (s *Store) MergeTaskArtifacts(ctx context.Context, id int64, partial map[string]any) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var raw sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT artifacts_json FROM tasks WHERE id = ?`, id).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read artifacts: %w", err)
		}

		current := s.decodeArtifacts(id, raw.String)
		for key, value := range partial {
			current[key] = value
		}

		merged, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("marshal artifacts: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET artifacts_json = ?, updated_at = ? WHERE id = ?`,
			string(merged), nowStamp(), id,
		); err != nil {
			return fmt.Errorf("write artifacts: %w", err)
		}
		return nil
	})
}

// ClaimOldestQueued atomically selects the QUEUED task with the smallest id,
// flips it to IN_PROGRESS, and returns it together with its application. The
// select and the flip share one transaction, and the flip re-checks the
// status, so two concurrent claimants can never both win the same task. When
// no QUEUED task exists it returns nil with no side effects.
func (s *Store) ClaimOldestQueued(ctx context.Context) (*Claim, error) {
	var claim *Claim
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		claim = nil
		row := tx.QueryRowContext(ctx,
			`SELECT `+taskColumnsSQL+` FROM tasks WHERE status = ? ORDER BY id ASC LIMIT 1`,
			StatusQueued,
		)
		task, err := s.scanTask(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("select queued task: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			StatusInProgress, nowStamp(), task.ID, StatusQueued,
		)
		if err != nil {
			return fmt.Errorf("claim task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			// Lost the race to another claimant inside the same process.
			return nil
		}
		task.Status = StatusInProgress

		appRow := tx.QueryRowContext(ctx,
			`SELECT `+applicationColumnsSQL+` FROM applications WHERE id = ?`, task.ApplicationID,
		)
		app, err := scanApplication(appRow)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("claimed task %d: application %d: %w", task.ID, task.ApplicationID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load claimed application: %w", err)
		}

		claim = &Claim{Task: task, Application: app}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

func (s *Store) scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id            int64
		applicationID int64
		statusStr     string
		attempts      int
		errText       sql.NullString
		artifactsRaw  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)
	if err := scanner.Scan(&id, &applicationID, &statusStr, &attempts, &errText, &artifactsRaw, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	task := &Task{
		ID:            id,
		ApplicationID: applicationID,
		Status:        Status(statusStr),
		Attempts:      attempts,
		Error:         errText.String,
		Artifacts:     s.decodeArtifacts(id, artifactsRaw.String),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		task.UpdatedAt = updated
	}
	return task, nil
}
