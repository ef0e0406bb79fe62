// Package api serves the HTTP surface of the daemon: batch enqueue, the
// application listing, board search, and status and health probes. All
// responses are JSON.
package api
