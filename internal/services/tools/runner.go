package tools

import (
	"context"
	"fmt"
	"io"
	"strings"

	"seqpoll/internal/services"
)

// Commands carries the argv templates for each external step.
type Commands struct {
	Extract []string
	Demux   []string
	QC      []string
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// Runner invokes the metadata extractor, demultiplexer, and QC report
// generator. Each call blocks until the tool exits.
type Runner struct {
	commands Commands
	exec     Executor
}

// New constructs a Runner.
func New(commands Commands, opts ...Option) *Runner {
	r := &Runner{commands: commands, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HasExtract reports whether a metadata extraction command is configured.
func (r *Runner) HasExtract() bool {
	return len(r.commands.Extract) > 0
}

// Extract refreshes instrument metadata in the status store.
func (r *Runner) Extract(ctx context.Context, vars Vars, output io.Writer) error {
	return r.run(ctx, "extract", r.commands.Extract, vars, output)
}

// Demultiplex splits raw reads into per-sample files under vars.DemuxDir.
func (r *Runner) Demultiplex(ctx context.Context, vars Vars, output io.Writer) error {
	return r.run(ctx, "demultiplex", r.commands.Demux, vars, output)
}

// QualityReport generates the QC report under vars.QCDir.
func (r *Runner) QualityReport(ctx context.Context, vars Vars, output io.Writer) error {
	return r.run(ctx, "quality_report", r.commands.QC, vars, output)
}

// Binaries returns the configured executables for PATH checks.
func (r *Runner) Binaries() []string {
	var out []string
	for _, argv := range [][]string{r.commands.Extract, r.commands.Demux, r.commands.QC} {
		if len(argv) > 0 && strings.TrimSpace(argv[0]) != "" {
			out = append(out, argv[0])
		}
	}
	return out
}

func (r *Runner) run(ctx context.Context, stage string, argv []string, vars Vars, output io.Writer) error {
	binary, args, err := Expand(argv, vars)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stage, "expand command", "", err)
	}
	if output != nil {
		fmt.Fprintf(output, "$ %s %s\n", binary, strings.Join(args, " "))
	}
	onOutput := func(line string) {
		if output != nil {
			fmt.Fprintln(output, line)
		}
	}
	if err := r.exec.Run(ctx, binary, args, onOutput); err != nil {
		return services.Wrap(services.ErrExternalTool, stage, binary, "command failed", err)
	}
	return nil
}
