// Package samplesheet inspects sample sheets retrieved from the status store.
// A sheet with no non-blank lines means demultiplexing is not actionable yet.
package samplesheet
