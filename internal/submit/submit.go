package submit

import (
	"context"
	"fmt"
	"strings"
)

// Submission is the prepared payload handed to a submitter: the job boundary
// fields plus the artifact paths tailoring produced.
type Submission struct {
	URL       string         `json:"url"`
	Company   string         `json:"company"`
	Title     string         `json:"title"`
	Portal    string         `json:"portal"`
	Materials map[string]any `json:"materials"`
}

// Result reports what a submitter did. Submitted is the confirmation flag:
// false means the attempt completed without confirming, which callers treat
// as a failure subject to the retry budget.
type Result struct {
	Portal    string
	Submitted bool
	Details   map[string]any
}

// Submitter performs the portal-specific submission step.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) (Result, error)
}

// Registry routes submissions to a portal-specific submitter, falling back
// to a default for portals with no dedicated entry.
type Registry struct {
	byPortal map[string]Submitter
	fallback Submitter
}

// NewRegistry builds a registry with the given default submitter. A nil
// default means unknown portals fail.
func NewRegistry(fallback Submitter) *Registry {
	return &Registry{
		byPortal: make(map[string]Submitter),
		fallback: fallback,
	}
}

// Register installs a submitter for a portal identifier.
func (r *Registry) Register(portal string, s Submitter) {
	r.byPortal[strings.ToLower(strings.TrimSpace(portal))] = s
}

// Submit dispatches to the portal's submitter or the fallback.
func (r *Registry) Submit(ctx context.Context, sub Submission) (Result, error) {
	portal := strings.ToLower(strings.TrimSpace(sub.Portal))
	if s, ok := r.byPortal[portal]; ok {
		return s.Submit(ctx, sub)
	}
	if r.fallback != nil {
		return r.fallback.Submit(ctx, sub)
	}
	return Result{}, fmt.Errorf("no submitter registered for portal %q", sub.Portal)
}
