// Package scanner discovers sequencer run directories below one or more
// search roots. A directory is a run when it directly contains the
// instrument's run metadata marker file (RunInfo.xml by default). Results are
// produced lazily as an iterator so the driver can start on the first run
// before the whole tree has been walked.
package scanner
