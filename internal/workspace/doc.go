// Package workspace describes the per-run directory layout under the
// configured workspace root: the lock file, log directory, retrieved sample
// sheet, demultiplexing and QC outputs, raw lane archives, and the STATUS_*
// breadcrumb files kept for operator visibility.
package workspace
