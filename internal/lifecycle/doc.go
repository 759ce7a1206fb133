// Package lifecycle holds the per-run state machine.
//
// A pass reads the run's sequencing and conversion status from the status
// store and evaluates three guarded transitions in order:
//
//	(a) sequencing detection while sequencing is not terminal
//	(b) demultiplexing when the delivery type includes seq
//	(c) raw per-lane archiving when the delivery type includes bcl
//
// Conversion work never starts while sequencing is non-terminal. When both
// branches apply they run sequentially and the conversion status is written
// once, after both finish, with failed taking precedence over skipped and
// skipped over complete. A run whose conversion status is terminal is left
// alone until an operator resets it. Local STATUS_* files are written as
// breadcrumbs and never read.
package lifecycle
