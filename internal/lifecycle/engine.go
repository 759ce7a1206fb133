package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"seqpoll/internal/archive"
	"seqpoll/internal/logging"
	"seqpoll/internal/preflight"
	"seqpoll/internal/runid"
	"seqpoll/internal/runstatus"
	"seqpoll/internal/services"
	"seqpoll/internal/services/tools"
	"seqpoll/internal/workspace"
)

// Store is the status store surface the engine consumes.
type Store interface {
	GetStatus(ctx context.Context, runPath string, category runstatus.Category) (runstatus.Status, error)
	SetStatus(ctx context.Context, runPath string, category runstatus.Category, status runstatus.Status) error
	GetDeliveryType(ctx context.Context, runPath string) (runstatus.DeliveryType, error)
	GetLaneCount(ctx context.Context, runPath string) (int, error)
	GetSampleSheet(ctx context.Context, runPath, dest string) error
	PostAttachment(ctx context.Context, runPath, subject, body, attachmentPath string) error
}

// Tools runs the external pipeline executables.
type Tools interface {
	HasExtract() bool
	Extract(ctx context.Context, vars tools.Vars, output io.Writer) error
	Demultiplex(ctx context.Context, vars tools.Vars, output io.Writer) error
	QualityReport(ctx context.Context, vars tools.Vars, output io.Writer) error
}

// Archiver builds one raw archive per lane.
type Archiver interface {
	BuildLane(ctx context.Context, runDir string, lane int, dest string) (archive.Result, error)
}

// Mode selects which transitions a pass may run.
type Mode string

const (
	ModeAll      Mode = "ALL"
	ModeRegister Mode = "REGISTER"
)

// ParseMode accepts ALL or REGISTER in any case.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(value))) {
	case ModeAll, "":
		return ModeAll, nil
	case ModeRegister:
		return ModeRegister, nil
	default:
		return "", fmt.Errorf("unknown step %q (want ALL or REGISTER)", value)
	}
}

// Run is one run directory together with its parsed identity and workspace.
type Run struct {
	Path      string
	ID        runid.Identity
	Workspace workspace.Workspace
}

// Options configures an Engine.
type Options struct {
	Mode         Mode
	Operator     string
	QCReportName string
	MinFreeGiB   int
	LogFormat    string
	LogLevel     string
	Now          func() time.Time
	// FreeSpace overrides the disk check before archiving (tests).
	FreeSpace func(name, path string, minGiB int) preflight.Result
}

// Engine advances one run per Pass call. It holds no per-run state between
// passes; the status store is the only authority.
type Engine struct {
	store    Store
	tools    Tools
	archiver Archiver
	opts     Options
	logger   *slog.Logger
}

// New constructs an Engine.
func New(store Store, toolRunner Tools, archiver Archiver, opts Options, logger *slog.Logger) *Engine {
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FreeSpace == nil {
		opts.FreeSpace = preflight.CheckFreeSpace
	}
	if opts.QCReportName == "" {
		opts.QCReportName = "multiqc_report.html"
	}
	return &Engine{
		store:    store,
		tools:    toolRunner,
		archiver: archiver,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "lifecycle"),
	}
}

// pass carries the per-call state of Pass.
type pass struct {
	*Engine
	run    Run
	logger *slog.Logger
	output io.Writer
	result *PassResult
}

// Pass evaluates the transitions for run once. The caller must hold the run
// lock. A returned error means the pass could not complete (for example the
// status store was unreachable); branch failures are recorded in the store
// and reported through PassResult instead.
func (e *Engine) Pass(ctx context.Context, run Run) (PassResult, error) {
	started := e.opts.Now()
	result := PassResult{Run: run.ID.Name}
	ctx = services.WithRunName(ctx, run.ID.Name)

	if err := run.Workspace.Ensure(); err != nil {
		return result, err
	}
	output := io.Discard
	logger := logging.WithContext(ctx, e.logger).With(logging.String(logging.FieldRunPath, run.Path))
	runLog, err := logging.OpenRunLog(run.Workspace.LogPath(started), e.opts.LogFormat, e.opts.LogLevel)
	if err != nil {
		logging.WarnWithContext(logger, "run log unavailable; continuing without it", "run_log_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check workspace permissions"),
			logging.String(logging.FieldImpact, "tool output for this pass is discarded"),
		)
	} else {
		defer runLog.Close()
		logger = runLog.Attach(logger)
		output = runLog.Writer()
	}

	p := &pass{Engine: e, run: run, logger: logger, output: output, result: &result}
	err = p.evaluate(ctx)
	result.Duration = e.opts.Now().Sub(started)
	if err != nil {
		logging.ErrorWithContext(logger, "pass aborted", "pass_aborted",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "status store or workspace unavailable; the next poll retries"),
		)
		return result, err
	}
	logger.Info("pass finished",
		logging.String("disposition", string(result.Disposition)),
		logging.String("state", string(result.State)),
		logging.Int("status_writes", len(result.Writes)),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

func (p *pass) evaluate(ctx context.Context) error {
	seq, err := p.store.GetStatus(ctx, p.run.Path, runstatus.CategorySequencing)
	if err != nil {
		return p.inputError(err, "read sequencing status")
	}
	p.result.Sequencing = seq

	if !seq.Terminal() {
		p.result.State = StateDiscovered
		var advanced bool
		if seq, advanced, err = p.advanceSequencing(ctx, seq); err != nil || !advanced {
			return err
		}
	} else {
		p.result.State = StateSequencingTerminal
	}

	if p.opts.Mode == ModeRegister {
		p.result.Disposition = DispositionRegistered
		p.result.Reason = "register mode stops after sequencing detection"
		return nil
	}
	return p.convert(ctx)
}

// advanceSequencing is transition (a). It reports whether sequencing is
// terminal afterwards.
func (p *pass) advanceSequencing(ctx context.Context, before runstatus.Status) (runstatus.Status, bool, error) {
	ctx = services.WithStage(ctx, "sequencing")
	logger := p.logger.With(logging.String(logging.FieldStage, "sequencing"))

	if p.tools.HasExtract() {
		started := time.Now()
		err := p.tools.Extract(context.WithoutCancel(ctx), p.vars(), p.output)
		if err != nil {
			// Sequencing is left untouched: a metadata refresh failure says
			// nothing about the instrument run itself.
			logging.WarnWithContext(logger, "metadata extraction failed", "extract_failed",
				logging.Error(err),
				logging.Duration("duration", time.Since(started)),
				logging.String(logging.FieldErrorHint, "inspect the run log for extractor output"),
				logging.String(logging.FieldImpact, "sequencing status not refreshed this pass"),
			)
			return before, false, err
		}
	}

	current, err := p.store.GetStatus(ctx, p.run.Path, runstatus.CategorySequencing)
	if err != nil {
		return before, false, p.inputError(err, "refresh sequencing status")
	}
	p.result.Sequencing = current

	switch current {
	case runstatus.StatusComplete, runstatus.StatusFailed:
		if err := p.write(ctx, runstatus.CategorySequencing, current); err != nil {
			return current, false, err
		}
		p.marker(workspace.MarkerRTADone, string(current))
		logger.Info("sequencing finished", logging.String(logging.FieldStatus, string(current)))
		p.result.State = StateSequencingTerminal
		return current, true, nil
	case runstatus.StatusInitial, runstatus.StatusReady, runstatus.StatusInProgress:
		logger.Info("sequencing in progress; conversion deferred", logging.String(logging.FieldStatus, string(current)))
		p.result.Disposition = DispositionWaiting
		return current, false, nil
	}
	if current.Terminal() {
		logger.Info("sequencing closed by operator", logging.String(logging.FieldStatus, string(current)))
		p.result.State = StateSequencingTerminal
		return current, true, nil
	}
	logging.WarnWithContext(logger, "unexpected sequencing status; leaving run unchanged", "unexpected_status",
		logging.String(logging.FieldCategory, string(runstatus.CategorySequencing)),
		logging.String(logging.FieldStatus, string(current)),
		logging.String(logging.FieldErrorHint, "set a known status in Flowcelltool"),
	)
	p.result.Disposition = DispositionUnexpected
	p.result.Reason = fmt.Sprintf("sequencing status %q", current)
	return current, false, nil
}

func (p *pass) convert(ctx context.Context) error {
	ctx = services.WithStage(ctx, "conversion")
	logger := p.logger.With(logging.String(logging.FieldStage, "conversion"))

	conv, err := p.store.GetStatus(ctx, p.run.Path, runstatus.CategoryConversion)
	if err != nil {
		return p.inputError(err, "read conversion status")
	}
	p.result.Conversion = conv
	if !conv.Known() {
		logging.WarnWithContext(logger, "unexpected conversion status; leaving run unchanged", "unexpected_status",
			logging.String(logging.FieldCategory, string(runstatus.CategoryConversion)),
			logging.String(logging.FieldStatus, string(conv)),
			logging.String(logging.FieldErrorHint, "set a known status in Flowcelltool"),
		)
		p.result.Disposition = DispositionUnexpected
		p.result.Reason = fmt.Sprintf("conversion status %q", conv)
		return nil
	}
	if conv.Terminal() {
		p.result.State = StateConversionTerminal
		p.result.Disposition = DispositionIdle
		p.result.Reason = "conversion already " + string(conv)
		logger.Debug("conversion terminal; nothing to do", logging.String(logging.FieldStatus, string(conv)))
		return nil
	}

	delivery, err := p.store.GetDeliveryType(ctx, p.run.Path)
	if err != nil {
		return p.inputError(err, "read delivery type")
	}
	p.result.Delivery = delivery
	if !delivery.Any() {
		p.result.Disposition = DispositionIdle
		p.result.Reason = "delivery type requires no conversion"
		return nil
	}

	lanes := 0
	if delivery.BCL {
		if lanes, err = p.store.GetLaneCount(ctx, p.run.Path); err != nil {
			return p.inputError(err, "read lane count")
		}
	}

	p.result.State = StateConversionPending
	attrs := logging.DecisionAttrs("conversion_branches", delivery.String(), "sequencing terminal and conversion pending")
	logger.Info("conversion starting", logging.Args(append(attrs, logging.Int("lanes", lanes))...)...)
	if err := p.write(ctx, runstatus.CategoryConversion, runstatus.StatusInProgress); err != nil {
		return err
	}

	var outcomes []Outcome
	if delivery.Seq {
		branch := p.demultiplex(ctx)
		p.result.Branches = append(p.result.Branches, branch)
		outcomes = append(outcomes, branch.Outcome)
	}
	if delivery.BCL {
		branch := p.archiveLanes(ctx, lanes)
		p.result.Branches = append(p.result.Branches, branch)
		outcomes = append(outcomes, branch.Outcome)
	}

	final := Combine(outcomes...)
	if err := p.write(ctx, runstatus.CategoryConversion, final.Status()); err != nil {
		return err
	}
	p.result.Conversion = final.Status()
	p.result.Disposition = Disposition(final.String())
	return nil
}

// inputError turns malformed-input failures into a logged skip and passes
// everything else through.
func (p *pass) inputError(err error, op string) error {
	if _, mutate := services.FailureStatus(err); mutate {
		return fmt.Errorf("%s: %w", op, err)
	}
	logging.WarnWithContext(p.logger, "run skipped: "+op, "run_input_invalid",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "fix the run record in Flowcelltool"),
		logging.String(logging.FieldImpact, "no status written this pass"),
	)
	p.result.Disposition = DispositionInvalid
	p.result.Reason = err.Error()
	return nil
}

func (p *pass) write(ctx context.Context, category runstatus.Category, status runstatus.Status) error {
	if err := p.store.SetStatus(ctx, p.run.Path, category, status); err != nil {
		return fmt.Errorf("write %s=%s: %w", category, status, err)
	}
	p.result.Writes = append(p.result.Writes, StatusWrite{Category: category, Status: status})
	p.logger.Info("status written",
		logging.String(logging.FieldCategory, string(category)),
		logging.String(logging.FieldStatus, string(status)),
	)
	return nil
}

func (p *pass) marker(name, outcome string) {
	if err := p.run.Workspace.WriteMarker(name, outcome, p.opts.Now()); err != nil {
		logging.WarnWithContext(p.logger, "marker write failed", "marker_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "local breadcrumb missing; store status is unaffected"),
		)
	}
}

func (p *pass) vars() tools.Vars {
	ws := p.run.Workspace
	return tools.Vars{
		RunDir:      p.run.Path,
		RunName:     p.run.ID.Name,
		Workspace:   ws.Dir,
		SampleSheet: ws.SampleSheetPath(),
		DemuxDir:    ws.DemuxDir(),
		QCDir:       ws.QCDir(),
		Operator:    p.opts.Operator,
	}
}

var errNoReport = errors.New("quality report not produced")
