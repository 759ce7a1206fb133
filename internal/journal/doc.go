// Package journal keeps a local SQLite history of lifecycle passes.
//
// The journal is written after every pass and read by the history command.
// It is never consulted when deciding what to do with a run; the status
// store stays the only authority on run state.
package journal
