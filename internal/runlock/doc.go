// Package runlock provides the per-run workspace lock that keeps two poller
// invocations from advancing the same run at once. Locks are non-blocking:
// a busy run is skipped for the current poll cycle, never waited on.
//
// Locks are flock-based, so they are scoped to the open file description
// and released by the operating system if the process dies mid-pass.
package runlock
