package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"seqpoll/internal/journal"
	"seqpoll/internal/lifecycle"
	"seqpoll/internal/logging"
	"seqpoll/internal/runid"
	"seqpoll/internal/runlock"
	"seqpoll/internal/scanner"
	"seqpoll/internal/services"
	"seqpoll/internal/workspace"
)

// ErrPassFailures is returned by Run when at least one pass ended with an
// unhandled error. The poll itself still visited every run.
var ErrPassFailures = errors.New("one or more runs failed")

// Passer runs one lifecycle pass for a locked run.
type Passer interface {
	Pass(ctx context.Context, run lifecycle.Run) (lifecycle.PassResult, error)
}

// Recorder persists pass history.
type Recorder interface {
	Record(ctx context.Context, entry journal.Entry) (journal.Entry, error)
}

// Option customizes a Driver.
type Option func(*Driver)

// WithJournal records every pass in r.
func WithJournal(r Recorder) Option {
	return func(d *Driver) { d.journal = r }
}

// WithMetrics counts discoveries, skips and passes in m.
func WithMetrics(m *Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// Summary tallies one poll.
type Summary struct {
	Discovered   int
	Malformed    int
	TooOld       int
	Busy         int
	Passes       int
	Errors       int
	Dispositions map[lifecycle.Disposition]int
	Duration     time.Duration
}

// Driver runs polls. It is not safe for concurrent use.
type Driver struct {
	opts    Options
	engine  Passer
	journal Recorder
	metrics *Metrics
	logger  *slog.Logger
}

// New constructs a Driver.
func New(opts Options, engine Passer, logger *slog.Logger, extra ...Option) *Driver {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Mode == "" {
		opts.Mode = lifecycle.ModeAll
	}
	d := &Driver{
		opts:   opts,
		engine: engine,
		logger: logging.NewComponentLogger(logger, "poller"),
	}
	for _, opt := range extra {
		opt(d)
	}
	return d
}

// Run performs one poll. Runs are visited sequentially in scan order.
// Cancelling ctx stops the poll before the next run; the pass in flight
// finishes. The returned error wraps ErrPassFailures when any pass failed.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	summary := Summary{Dispositions: make(map[lifecycle.Disposition]int)}
	if err := d.opts.Validate(); err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "poller", "validate options", "", err)
	}
	started := d.opts.Now()

	scanOpts := d.opts.scan()
	scanOpts.OnError = func(path string, err error) {
		logging.WarnWithContext(d.logger, "search path unreadable; skipped", "scan_unreadable",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the search root"),
		)
	}
	d.logger.Info("poll started",
		logging.Any("roots", d.opts.Roots),
		logging.Int("max_depth", d.opts.MaxDepth),
		logging.Int("min_year", d.opts.MinYear),
		logging.String("mode", string(d.opts.Mode)),
	)

	for path := range scanner.Walk(ctx, scanOpts) {
		summary.Discovered++
		d.metrics.runDiscovered()
		if err := d.visit(ctx, path, &summary); err != nil {
			summary.Errors++
		}
		if ctx.Err() != nil {
			d.logger.Warn("poll interrupted; remaining runs left for the next poll",
				logging.String(logging.FieldEventType, "poll_interrupted"),
				logging.String(logging.FieldImpact, "runs after the current one were not visited"),
				logging.String(logging.FieldErrorHint, "rerun seqpoll poll"),
			)
			break
		}
	}

	finished := d.opts.Now()
	summary.Duration = finished.Sub(started)
	d.metrics.pollFinished(summary.Duration, finished)
	d.logger.Info("poll finished",
		logging.Int("discovered", summary.Discovered),
		logging.Int("passes", summary.Passes),
		logging.Int("skipped_malformed", summary.Malformed),
		logging.Int("skipped_old", summary.TooOld),
		logging.Int("skipped_busy", summary.Busy),
		logging.Int("errors", summary.Errors),
		logging.Duration("duration", summary.Duration),
	)
	if summary.Errors > 0 {
		return summary, fmt.Errorf("%w: %d of %d", ErrPassFailures, summary.Errors, summary.Discovered)
	}
	return summary, nil
}

// visit handles one discovered run directory. Only unhandled failures are
// returned; skips are counted in summary.
func (d *Driver) visit(ctx context.Context, path string, summary *Summary) error {
	logger := d.logger.With(logging.String(logging.FieldRunPath, path))

	id, err := runid.Parse(path)
	if err != nil {
		summary.Malformed++
		d.metrics.runSkipped(SkipMalformed)
		logging.WarnWithContext(logger, "run directory name malformed; skipped", "run_name_malformed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rename the directory to YYMMDD_INSTRUMENT_RUN_FLOWCELL"),
		)
		return nil
	}
	logger = logger.With(logging.String(logging.FieldRun, id.Name))
	if id.Year < d.opts.MinYear {
		summary.TooOld++
		d.metrics.runSkipped(SkipTooOld)
		logger.Debug("run before minimum year; skipped",
			logging.Args(logging.DecisionAttrs("min_year", "skip", fmt.Sprintf("year %d < %d", id.Year, d.opts.MinYear))...)...)
		return nil
	}

	ws := workspace.New(d.opts.WorkspaceRoot, id)
	lock, err := runlock.TryAcquire(ws.Dir)
	if errors.Is(err, runlock.ErrBusy) {
		summary.Busy++
		d.metrics.runSkipped(SkipBusy)
		logger.Info("run locked by another process; skipped", logging.String("lock", ws.Dir))
		return nil
	}
	if err != nil {
		logging.ErrorWithContext(logger, "run lock unavailable", "run_lock_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the workspace root"),
		)
		d.metrics.passFinished("error")
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("run lock release failed", logging.Error(err), logging.String(logging.FieldEventType, "run_lock_release"))
		}
	}()

	correlation := uuid.NewString()
	passCtx := services.WithRequestID(ctx, correlation)
	started := d.opts.Now()
	result, passErr := d.engine.Pass(passCtx, lifecycle.Run{Path: path, ID: id, Workspace: ws})
	summary.Passes++

	outcome := string(result.Disposition)
	if passErr != nil {
		outcome = "error"
	}
	if outcome == "" {
		outcome = "none"
	}
	summary.Dispositions[result.Disposition]++
	d.metrics.passFinished(outcome)
	d.record(ctx, logger, journalEntry(path, id, correlation, d.opts.Mode, started, result, passErr))
	return passErr
}

func (d *Driver) record(ctx context.Context, logger *slog.Logger, entry journal.Entry) {
	if d.journal == nil {
		return
	}
	if _, err := d.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(logger, "pass journal write failed", "journal_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "pass missing from seqpoll history"),
		)
	}
}

func journalEntry(path string, id runid.Identity, correlation string, mode lifecycle.Mode, started time.Time, result lifecycle.PassResult, passErr error) journal.Entry {
	entry := journal.Entry{
		CorrelationID: correlation,
		Run:           id.Name,
		RunPath:       path,
		Mode:          string(mode),
		State:         string(result.State),
		Disposition:   string(result.Disposition),
		Sequencing:    string(result.Sequencing),
		Conversion:    string(result.Conversion),
		Reason:        result.Reason,
		StartedAt:     started,
		Duration:      result.Duration,
	}
	if result.Delivery.Any() {
		entry.Delivery = result.Delivery.String()
	}
	for _, w := range result.Writes {
		entry.Writes = append(entry.Writes, string(w.Category)+"="+string(w.Status))
	}
	if passErr != nil {
		entry.Disposition = "error"
		entry.Error = passErr.Error()
	}
	return entry
}
