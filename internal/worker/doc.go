// Package worker drives the application pipeline: a polling loop claims
// tasks from the queue engine, invokes the tailoring and submission
// collaborators, and reports outcomes back. Collaborator errors become task
// failures under the retry budget, never loop crashes.
package worker
