// Package queue persists job applications and their tasks in SQLite and owns
// the task status enum.
//
// The Store is the only component that touches the database. It exposes the
// narrow persistence contract the engine builds on: transactional
// application+task creation, the atomic oldest-QUEUED claim, status updates,
// attempt counting, and transaction-scoped artifact merges. Schema setup is
// idempotent and additive: tables and required columns are created or patched
// in, never dropped or renamed.
//
// Treat this package as the single source of truth for queue semantics; new
// statuses or columns belong in models.go and schema.go together.
package queue
