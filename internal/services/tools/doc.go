// Package tools runs the external pipeline executables (metadata extraction,
// demultiplexing, quality reporting) from argv templates configured in TOML.
//
// Placeholders such as {run_dir} and {sample_sheet} are substituted before the
// command starts. Combined stdout and stderr are forwarded line by line to the
// writer supplied by the caller, normally the per-run log file.
package tools
