// Package engine implements the application task lifecycle on top of the
// queue store: claiming work, recording artifacts, and enforcing the status
// state machine and retry budget. Workers and the HTTP surface both operate
// through it rather than touching the store directly.
package engine
