package queue

import (
	"encoding/json"
	"strings"
	"time"
)

// Status represents the lifecycle of an application task.
type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDrafted    Status = "DRAFTED"
	StatusSubmitted  Status = "SUBMITTED"
	StatusDone       Status = "DONE"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

var allStatuses = []Status{
	StatusQueued,
	StatusInProgress,
	StatusDrafted,
	StatusSubmitted,
	StatusDone,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// allowedTransitions encodes the forward edges of the task state machine.
// The retry edge FAILED -> QUEUED and the administrative CANCELLED edge are
// included; DONE and CANCELLED have no outgoing edges.
var allowedTransitions = map[Status][]Status{
	StatusQueued:     {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusDrafted, StatusSubmitted, StatusFailed, StatusQueued, StatusCancelled},
	StatusDrafted:    {StatusSubmitted, StatusFailed, StatusQueued, StatusCancelled},
	StatusSubmitted:  {StatusDone, StatusFailed, StatusCancelled},
	StatusFailed:     {StatusQueued},
	StatusDone:       nil,
	StatusCancelled:  nil,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToUpper(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// KnownStatus reports whether the value is inside the closed status enum.
func KnownStatus(status Status) bool {
	_, ok := statusSet[status]
	return ok
}

// IsTerminal reports whether a status permits no further transitions.
// FAILED keeps its retry edge, so it is not terminal here.
func IsTerminal(status Status) bool {
	return status == StatusDone || status == StatusCancelled
}

// CanTransition reports whether the state machine allows moving from one
// status to another.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Application is the immutable job record created at enqueue time. Payload
// holds the original job object verbatim.
type Application struct {
	ID        int64
	URL       string
	Company   string
	Title     string
	Portal    string
	Payload   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Task is one attempt-tracked unit of work against an Application.
type Task struct {
	ID            int64
	ApplicationID int64
	Status        Status
	Attempts      int
	Error         string
	Artifacts     map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ApplicationStatus is the listing projection: an application joined with its
// newest task's status, attempts, error, and artifacts.
type ApplicationStatus struct {
	Application
	TaskID    int64
	Status    Status
	Attempts  int
	Error     string
	Artifacts map[string]any
}
