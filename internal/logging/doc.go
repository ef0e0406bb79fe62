// Package logging assembles structured slog loggers and field helpers used
// across applyd components.
//
// It centralizes level and output plumbing (console or JSON, stdout plus an
// optional log file) and exposes shared attribute keys so worker, engine, and
// API log lines carry task and application identifiers with the same shape.
// A no-op logger is available for tests and wiring code that cannot fail.
package logging
