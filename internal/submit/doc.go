// Package submit performs the portal-facing submission step behind a small
// Submitter interface. The dryrun submitter confirms without side effects;
// the webhook submitter delegates to an external automation endpoint. A
// registry selects per portal with a configurable fallback.
package submit
