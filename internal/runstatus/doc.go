// Package runstatus defines the status vocabulary shared with the flowcell
// tracking service: the two tracked categories (sequencing, conversion), the
// fixed status values, which of them are terminal, and the delivery type
// flags that decide whether a run is demultiplexed, archived raw, or both.
package runstatus
