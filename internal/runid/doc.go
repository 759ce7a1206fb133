// Package runid derives a stable identity (year, instrument, run number,
// flow cell vendor id) from a sequencer run directory name. The identity
// keys both the per-run workspace path and flow cell lookups in the tracking
// service.
package runid
