// Package daemon wires the queue store, worker pool, and API server into a
// single supervised process guarded by a file lock, so exactly one daemon
// writes a given data directory.
package daemon
