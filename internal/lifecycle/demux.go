package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"seqpoll/internal/logging"
	"seqpoll/internal/samplesheet"
	"seqpoll/internal/services"
	"seqpoll/internal/workspace"
)

// demultiplex is transition (b): sample sheet, demultiplexer, QC report, and
// the report posted to the store. The first failing step ends the branch;
// artifacts already produced stay in the workspace.
func (p *pass) demultiplex(ctx context.Context) BranchResult {
	ctx = services.WithStage(ctx, "demultiplex")
	logger := p.logger.With(logging.String(logging.FieldStage, "demultiplex"))
	toolCtx := context.WithoutCancel(ctx)
	branch := BranchResult{Name: "demultiplex", Outcome: OutcomeComplete}
	ws := p.run.Workspace
	vars := p.vars()

	defer func() {
		p.marker(workspace.MarkerDemuxDone, branch.Outcome.String())
		if branch.Outcome == OutcomeFailed {
			logging.ErrorWithContext(logger, "demultiplexing failed", "demux_failed",
				logging.Error(branch.Err()),
				logging.String(logging.FieldErrorHint, "inspect the run log, then reset conversion status to retry"),
			)
		}
	}()

	started := time.Now()
	err := p.store.GetSampleSheet(ctx, p.run.Path, ws.SampleSheetPath())
	if !branch.record("sample_sheet", started, err) {
		return branch
	}
	blank, err := samplesheet.Blank(ws.SampleSheetPath())
	if err != nil {
		branch.record("sample_sheet_check", started, err)
		return branch
	}
	if blank {
		logger.Info("sample sheet empty; demultiplexing skipped",
			logging.Args(logging.DecisionAttrs("demultiplex", "skip", "no non-blank lines in sample sheet")...)...)
		branch.Outcome = OutcomeSkipped
		return branch
	}
	summary := sheetSummary(logger, ws.SampleSheetPath())

	started = time.Now()
	err = ensureDir(ws.DemuxDir())
	if err == nil {
		err = p.tools.Demultiplex(toolCtx, vars, p.output)
	}
	if !branch.record("demultiplex", started, err) {
		return branch
	}
	logger.Info("demultiplexing finished", logging.Duration("duration", time.Since(started)))

	started = time.Now()
	err = ensureDir(ws.QCDir())
	if err == nil {
		err = p.tools.QualityReport(toolCtx, vars, p.output)
	}
	if !branch.record("quality_report", started, err) {
		return branch
	}

	started = time.Now()
	report := filepath.Join(ws.QCDir(), p.opts.QCReportName)
	if _, err := os.Stat(report); err != nil {
		branch.record("post_report", started, fmt.Errorf("%w: %s", errNoReport, report))
		return branch
	}
	subject := fmt.Sprintf("Quality report for %s", p.run.ID.Name)
	err = p.store.PostAttachment(ctx, p.run.Path, subject, reportBody(p.run.ID.Name, summary, branch.Steps), report)
	if !branch.record("post_report", started, err) {
		return branch
	}
	logger.Info("quality report posted", logging.String("report", report))
	return branch
}

func reportBody(run string, sheet samplesheet.Summary, steps []StepResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Demultiplexing of %s finished.\n", run)
	if sheet.Format != "" {
		fmt.Fprintf(&b, "Sample sheet: %s\n", sheet)
	}
	for _, step := range steps {
		fmt.Fprintf(&b, "%s: ok (%s)\n", step.Name, step.Duration.Round(time.Second))
	}
	return b.String()
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "workspace", "create directory", dir, err)
	}
	return nil
}

// sheetSummary logs the sample sheet summary. An unreadable sheet yields a
// zero Summary, which the report body omits.
func sheetSummary(logger *slog.Logger, path string) samplesheet.Summary {
	summary, err := samplesheet.Summarize(path)
	if err != nil {
		logger.Debug("sample sheet summary unavailable", logging.Error(err))
		return samplesheet.Summary{}
	}
	logger.Info("sample sheet retrieved", logging.String("sample_sheet", summary.String()))
	return summary
}
