// Package logging assembles structured slog loggers and formatting helpers used
// across seqpoll.
//
// It owns the configurable console/JSON handlers, the per-run log file that
// collects a pass's records alongside external tool output, and context-aware
// helpers so lifecycle code automatically tags log lines with run names,
// stages, lanes, and correlation IDs. A no-op logger is provided for tests.
package logging
