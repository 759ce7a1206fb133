package preflight

import (
	"context"

	"seqpoll/internal/config"
	"seqpoll/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the startup checks for a poll: workspace and log
// directories must be writable and the status store must answer.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{CheckDirectoryAccess("Workspace root", cfg.Paths.WorkspaceRoot)}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Flowcelltool.URL != "" {
		results = append(results, CheckFlowcelltool(ctx, cfg.Flowcelltool.URL, cfg.Flowcelltool.AuthToken))
	}
	return results
}

// CheckTools reports whether the configured external executables resolve on PATH.
func CheckTools(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Demultiplexer",
			Command:     firstArg(cfg.Tools.DemuxCommand),
			Description: "Required for runs delivered as seq",
		},
		{
			Name:        "QC report",
			Command:     firstArg(cfg.Tools.QCCommand),
			Description: "Required after demultiplexing",
		},
	}
	if len(cfg.Tools.ExtractCommand) > 0 {
		requirements = append(requirements, deps.Requirement{
			Name:        "Metadata extractor",
			Command:     firstArg(cfg.Tools.ExtractCommand),
			Description: "Refreshes instrument metadata before sequencing status checks",
		})
	}
	if len(cfg.Archive.Compressor) > 0 {
		requirements = append(requirements, deps.Requirement{
			Name:        "Compressor",
			Command:     firstArg(cfg.Archive.Compressor),
			Description: "Compresses raw lane archives",
		})
	}
	return deps.CheckBinaries(requirements)
}

func firstArg(argv []string) string {
	if len(argv) == 0 {
		return ""
	}
	return argv[0]
}
