// Package services defines shared utilities consumed by the lifecycle engine
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run names, stage names, lanes, and per-pass
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent status writes (failed vs skip-without-mutation).
//
// Wrappers around external executables live in subpackages (see tools).
package services
