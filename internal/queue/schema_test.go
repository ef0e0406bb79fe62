package queue_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	_ "modernc.org/sqlite"

	"applyd/internal/logging"
	"applyd/internal/queue"
	"applyd/internal/testsupport"
)

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first, err := store.TableColumns(ctx, "tasks")
	if err != nil {
		t.Fatalf("TableColumns failed: %v", err)
	}

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("second EnsureSchema failed: %v", err)
	}
	second, err := store.TableColumns(ctx, "tasks")
	if err != nil {
		t.Fatalf("TableColumns failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("column set changed across EnsureSchema calls: %v vs %v", first, second)
	}
}

func TestEnsureSchemaAddsMissingColumns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "apply.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	// An old-version tasks table without error and artifacts columns.
	_, err = db.Exec(`CREATE TABLE tasks (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        application_id INTEGER NOT NULL,
        status TEXT NOT NULL,
        attempts INTEGER NOT NULL DEFAULT 0,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL
    )`)
	if err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close raw db: %v", err)
	}

	store, err := queue.OpenPath(dbPath, logging.NewNop())
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	defer store.Close()

	columns, err := store.TableColumns(context.Background(), "tasks")
	if err != nil {
		t.Fatalf("TableColumns failed: %v", err)
	}
	want := map[string]bool{"error": false, "artifacts_json": false}
	for _, col := range columns {
		if _, ok := want[col]; ok {
			want[col] = true
		}
	}
	for col, found := range want {
		if !found {
			t.Fatalf("expected column %s to be patched in, have %v", col, columns)
		}
	}
}

func TestEnsureSchemaRejectsIncompatibleColumn(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "apply.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE tasks (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        application_id INTEGER NOT NULL,
        status INTEGER NOT NULL,
        attempts INTEGER NOT NULL DEFAULT 0,
        error TEXT,
        artifacts_json TEXT,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL
    )`)
	if err != nil {
		t.Fatalf("create conflicting table: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close raw db: %v", err)
	}

	_, err = queue.OpenPath(dbPath, logging.NewNop())
	if !errors.Is(err, queue.ErrSchema) {
		t.Fatalf("expected ErrSchema for status INTEGER column, got %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in   string
		want queue.Status
		ok   bool
	}{
		{"queued", queue.StatusQueued, true},
		{" Done ", queue.StatusDone, true},
		{"IN_PROGRESS", queue.StatusInProgress, true},
		{"BOGUS", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := queue.ParseStatus(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("ParseStatus(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to queue.Status }{
		{queue.StatusQueued, queue.StatusInProgress},
		{queue.StatusInProgress, queue.StatusDrafted},
		{queue.StatusInProgress, queue.StatusQueued},
		{queue.StatusDrafted, queue.StatusSubmitted},
		{queue.StatusSubmitted, queue.StatusDone},
		{queue.StatusFailed, queue.StatusQueued},
		{queue.StatusQueued, queue.StatusCancelled},
	}
	for _, tc := range allowed {
		if !queue.CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	refused := []struct{ from, to queue.Status }{
		{queue.StatusDone, queue.StatusQueued},
		{queue.StatusCancelled, queue.StatusQueued},
		{queue.StatusDone, queue.StatusFailed},
		{queue.StatusSubmitted, queue.StatusQueued},
		{queue.StatusQueued, queue.StatusDone},
	}
	for _, tc := range refused {
		if queue.CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be refused", tc.from, tc.to)
		}
	}
}
