// Command seqpoll polls sequencer run directories and advances each run
// through sequencing detection, demultiplexing and raw lane archiving,
// recording progress in Flowcelltool.
//
// A typical deployment runs "seqpoll poll" from cron or a systemd timer.
// Concurrent invocations are safe: each run is guarded by a workspace lock
// and busy runs are skipped until the next poll.
package main
