package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const applicationColumnsSQL = "id, url, company, title, portal, job_json, created_at, updated_at"

// InsertApplication persists a new application row and returns its id. The
// payload is stored verbatim.
func (s *Store) InsertApplication(ctx context.Context, app *Application) (int64, error) {
	if app == nil {
		return 0, errors.New("application is nil")
	}
	now := nowStamp()
	var id int64
	err := retryOnBusy(ensureContext(ctx), func() error {
		res, err := s.db.ExecContext(
			ctx,
			`INSERT INTO applications (url, company, title, portal, job_json, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			app.URL, app.Company, app.Title, app.Portal, string(app.Payload), now, now,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert application: %w", err)
	}
	return id, nil
}

// InsertTask persists a new task for an application in the given initial
// status and returns its id.
func (s *Store) InsertTask(ctx context.Context, applicationID int64, initial Status) (int64, error) {
	if !KnownStatus(initial) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, initial)
	}
	now := nowStamp()
	var id int64
	err := retryOnBusy(ensureContext(ctx), func() error {
		res, err := s.db.ExecContext(
			ctx,
			`INSERT INTO tasks (application_id, status, attempts, created_at, updated_at)
             VALUES (?, ?, 0, ?, ?)`,
			applicationID, initial, now, now,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	return id, nil
}

// InsertApplicationWithTask creates an application row and its initial QUEUED
// task inside a single transaction, so a crash can never leave an application
// without a task. It returns the new task id.
func (s *Store) InsertApplicationWithTask(ctx context.Context, app *Application) (int64, error) {
	if app == nil {
		return 0, errors.New("application is nil")
	}
	now := nowStamp()
	var taskID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO applications (url, company, title, portal, job_json, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			app.URL, app.Company, app.Title, app.Portal, string(app.Payload), now, now,
		)
		if err != nil {
			return fmt.Errorf("insert application: %w", err)
		}
		appID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("application id: %w", err)
		}
		app.ID = appID

		res, err = tx.ExecContext(
			ctx,
			`INSERT INTO tasks (application_id, status, attempts, created_at, updated_at)
             VALUES (?, ?, 0, ?, ?)`,
			appID, StatusQueued, now, now,
		)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		taskID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("task id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return taskID, nil
}

// GetApplication fetches an application by id.
func (s *Store) GetApplication(ctx context.Context, id int64) (*Application, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+applicationColumnsSQL+` FROM applications WHERE id = ?`, id,
	)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}

func scanApplication(scanner interface{ Scan(dest ...any) error }) (*Application, error) {
	var (
		id         int64
		url        sql.NullString
		company    sql.NullString
		title      sql.NullString
		portal     sql.NullString
		jobJSON    sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &url, &company, &title, &portal, &jobJSON, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	app := &Application{
		ID:      id,
		URL:     url.String,
		Company: company.String,
		Title:   title.String,
		Portal:  portal.String,
		Payload: json.RawMessage(jobJSON.String),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		app.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		app.UpdatedAt = updated
	}
	return app, nil
}
