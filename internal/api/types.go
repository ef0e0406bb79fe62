package api

import "applyd/internal/queue"

// ApplyRequest is the batch enqueue payload: each entry is an opaque job
// object whose boundary fields (url, company, title, portal) are lifted into
// the application row.
type ApplyRequest struct {
	Jobs []map[string]any `json:"jobs"`
}

// ApplyEntry is the outcome of one batch entry. Exactly one of TaskID or
// Error is meaningful.
type ApplyEntry struct {
	TaskID int64  `json:"task_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ApplyResponse reports per-entry results; a malformed entry never aborts
// the rest of the batch.
type ApplyResponse struct {
	Results []ApplyEntry `json:"results"`
	Queued  int          `json:"queued"`
}

// ApplicationItem is the listing projection of an application with its
// newest task.
type ApplicationItem struct {
	ApplicationID int64          `json:"application_id"`
	URL           string         `json:"url"`
	Company       string         `json:"company"`
	Title         string         `json:"title"`
	Portal        string         `json:"portal"`
	TaskID        int64          `json:"task_id"`
	Status        queue.Status   `json:"status"`
	Attempts      int            `json:"attempts"`
	Error         string         `json:"error,omitempty"`
	Artifacts     map[string]any `json:"artifacts"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
}

// ApplicationsResponse wraps the listing.
type ApplicationsResponse struct {
	Items []ApplicationItem `json:"items"`
}

// StatusResponse summarizes the daemon and its queue.
type StatusResponse struct {
	Running     bool           `json:"running"`
	PID         int            `json:"pid"`
	QueueDBPath string         `json:"queue_db_path"`
	Workers     int            `json:"workers"`
	Counts      map[string]int `json:"counts"`
}

// HealthResponse reports the database health probe.
type HealthResponse struct {
	Healthy        bool     `json:"healthy"`
	DBPath         string   `json:"db_path"`
	TablesPresent  []string `json:"tables_present"`
	MissingColumns []string `json:"missing_columns,omitempty"`
	IntegrityCheck bool     `json:"integrity_check"`
	TotalTasks     int      `json:"total_tasks"`
	Error          string   `json:"error,omitempty"`
}
