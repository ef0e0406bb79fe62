package queue

import "errors"

// ErrNotFound indicates an operation referenced a task or application id that
// does not exist. No write occurs.
var ErrNotFound = errors.New("queue: not found")

// ErrInvalidStatus indicates a transition named a status outside the closed
// enum. No write occurs.
var ErrInvalidStatus = errors.New("queue: invalid status")

// ErrInvalidTransition indicates the state machine refused a transition, for
// example out of a terminal status. No write occurs.
var ErrInvalidTransition = errors.New("queue: invalid transition")

// ErrStaleStatus indicates a guarded status update found the task no longer
// in the observed status: another writer moved it first. No write occurs.
var ErrStaleStatus = errors.New("queue: stale status")

// ErrSchema wraps fatal schema initialization failures: unreachable storage
// or an existing column whose type conflicts with the required declaration.
var ErrSchema = errors.New("queue: schema")
