// Package poller drives one poll: it scans the search roots for run
// directories, filters them by run year, takes each run's workspace lock and
// hands the run to the lifecycle engine for a single pass.
//
// Runs are processed one at a time. A failure in one run is logged, counted
// and recorded in the journal; it never stops the poll. Metrics for the poll
// are written to a Prometheus textfile when a path is configured.
package poller
