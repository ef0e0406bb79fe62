package queue

import (
	"context"
	"fmt"
	"strings"
)

// column is one required column with its SQLite declaration. Order matters
// for CREATE TABLE so schemas stay byte-stable across fresh installs.
type column struct {
	name string
	decl string
}

var applicationColumns = []column{
	{"id", "INTEGER PRIMARY KEY AUTOINCREMENT"},
	{"url", "TEXT"},
	{"company", "TEXT"},
	{"title", "TEXT"},
	{"portal", "TEXT"},
	{"job_json", "TEXT NOT NULL"},
	{"created_at", "TEXT NOT NULL"},
	{"updated_at", "TEXT NOT NULL"},
}

var taskColumns = []column{
	{"id", "INTEGER PRIMARY KEY AUTOINCREMENT"},
	{"application_id", "INTEGER NOT NULL"},
	{"status", "TEXT NOT NULL"},
	{"attempts", "INTEGER NOT NULL DEFAULT 0"},
	{"error", "TEXT"},
	{"artifacts_json", "TEXT"},
	{"created_at", "TEXT NOT NULL"},
	{"updated_at", "TEXT NOT NULL"},
}

var taskIndexes = []struct {
	name string
	sql  string
}{
	{"idx_tasks_status", "CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)"},
	{"idx_tasks_app", "CREATE INDEX IF NOT EXISTS idx_tasks_app ON tasks(application_id)"},
	{"idx_tasks_updated", "CREATE INDEX IF NOT EXISTS idx_tasks_updated ON tasks(updated_at)"},
}

// EnsureSchema creates the applications and tasks tables when absent and
// additively patches in any required column that is missing. Columns are
// never dropped or renamed. Index creation failures degrade performance, not
// correctness, so they are logged as warnings rather than returned.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.ensureTable(ctx, "applications", applicationColumns); err != nil {
		return fmt.Errorf("%w: applications: %v", ErrSchema, err)
	}
	if err := s.ensureTable(ctx, "tasks", taskColumns); err != nil {
		return fmt.Errorf("%w: tasks: %v", ErrSchema, err)
	}
	s.ensureIndexes(ctx)
	return nil
}

func (s *Store) ensureTable(ctx context.Context, table string, required []column) error {
	exists, err := s.tableExists(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		decls := make([]string, 0, len(required))
		for _, col := range required {
			decls = append(decls, col.name+" "+col.decl)
		}
		create := "CREATE TABLE " + table + " (" + strings.Join(decls, ", ") + ")"
		if _, err := s.db.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
		return nil
	}

	existing, err := s.tableColumnTypes(ctx, table)
	if err != nil {
		return err
	}
	for _, col := range required {
		declared, present := existing[col.name]
		if !present {
			alter := "ALTER TABLE " + table + " ADD COLUMN " + col.name + " " + col.decl
			if _, err := s.db.ExecContext(ctx, alter); err != nil {
				return fmt.Errorf("add column %s: %v", col.name, err)
			}
			continue
		}
		if !compatibleColumnType(declared, col.decl) {
			return fmt.Errorf("column %s has type %s, want %s", col.name, declared, col.decl)
		}
	}
	return nil
}

func (s *Store) ensureIndexes(ctx context.Context) {
	for _, idx := range taskIndexes {
		if _, err := s.db.ExecContext(ctx, idx.sql); err != nil {
			s.logger.Warn("index creation failed; polling may slow down",
				"index", idx.name,
				"error", err.Error(),
			)
		}
	}
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %s: %v", name, err)
	}
	return count > 0, nil
}

func (s *Store) tableColumnTypes(ctx context.Context, table string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return nil, fmt.Errorf("table info %s: %v", table, err)
	}
	defer rows.Close()

	columns := make(map[string]string)
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %v", err)
		}
		columns[name] = typeStr
	}
	return columns, rows.Err()
}

// TableColumns returns the column names of a table in declaration order,
// used by health checks and schema tests.
func (s *Store) TableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// compatibleColumnType compares the storage type token of an existing column
// with the required declaration. Constraint clauses are ignored; only the
// leading type keyword has to agree.
func compatibleColumnType(existing, requiredDecl string) bool {
	existingFields := strings.Fields(existing)
	if len(existingFields) == 0 {
		// SQLite permits typeless columns; treat them as compatible.
		return true
	}
	requiredType := strings.ToUpper(strings.Fields(requiredDecl)[0])
	return strings.ToUpper(existingFields[0]) == requiredType
}
