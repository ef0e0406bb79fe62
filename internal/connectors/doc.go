// Package connectors ingests postings from public job board APIs
// (greenhouse, lever), normalizes them into a shared Job shape, and scores
// them against a search request. Board failures degrade to warnings so one
// broken board never empties a search.
package connectors
