// Package config loads, normalizes, and validates applyd configuration.
//
// Configuration is TOML with a single Config struct covering paths, worker
// timing, the applicant profile, submission settings, connectors, and logging.
// Load searches the default locations when no explicit path is given, applies
// defaults for missing values, expands ~ in paths, and rejects unusable
// values before any subsystem starts.
package config
