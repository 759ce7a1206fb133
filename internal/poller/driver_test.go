package poller_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"seqpoll/internal/journal"
	"seqpoll/internal/lifecycle"
	"seqpoll/internal/poller"
	"seqpoll/internal/runid"
	"seqpoll/internal/runlock"
	"seqpoll/internal/runstatus"
	"seqpoll/internal/services"
	"seqpoll/internal/testsupport"
	"seqpoll/internal/workspace"
)

type fakeEngine struct {
	mu     sync.Mutex
	runs   []string
	ids    []string
	failOn map[string]error
}

func (f *fakeEngine) Pass(ctx context.Context, run lifecycle.Run) (lifecycle.PassResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run.ID.Name)
	if id, ok := services.RequestIDFromContext(ctx); ok {
		f.ids = append(f.ids, id)
	}
	if _, err := os.Stat(filepath.Join(run.Workspace.Dir, runlock.FileName)); err != nil {
		return lifecycle.PassResult{}, errors.New("pass called without the workspace lock file")
	}
	if err := f.failOn[run.ID.Name]; err != nil {
		return lifecycle.PassResult{Run: run.ID.Name}, err
	}
	return lifecycle.PassResult{
		Run:         run.ID.Name,
		State:       lifecycle.StateConversionPending,
		Disposition: lifecycle.DispositionComplete,
		Delivery:    runstatus.DeliveryType{Seq: true},
		Writes: []lifecycle.StatusWrite{
			{Category: runstatus.CategoryConversion, Status: runstatus.StatusInProgress},
			{Category: runstatus.CategoryConversion, Status: runstatus.StatusComplete},
		},
	}, nil
}

func TestRunVisitsRunsAndSkipsIneligible(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := testsupport.RunsRoot(cfg)
	testsupport.NewRun(t, root, "190101_INSTR1_0001_AOLDFC", 1)
	testsupport.NewRun(t, filepath.Join(root, "novaseq"), "210301_INSTR2_0002_BNEWFC1", 2)
	testsupport.NewRun(t, root, "210302_INSTR2_0003_BNEWFC2", 1)
	testsupport.NewRun(t, root, "not_a_run", 1)

	opts := poller.OptionsFromConfig(cfg, lifecycle.ModeAll, time.Now())
	opts.MinYear = 2021
	engine := &fakeEngine{}
	j := testsupport.MustOpenJournal(t, cfg)
	metrics := poller.NewMetrics()

	summary, err := poller.New(opts, engine, nil, poller.WithJournal(j), poller.WithMetrics(metrics)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Discovered != 4 || summary.Passes != 2 || summary.TooOld != 1 || summary.Malformed != 1 || summary.Errors != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	// Scan order is lexical per directory: novaseq/ sorts after the top-level run.
	if len(engine.runs) != 2 || engine.runs[0] != "210302_INSTR2_0003_BNEWFC2" || engine.runs[1] != "210301_INSTR2_0002_BNEWFC1" {
		t.Fatalf("unexpected runs %v", engine.runs)
	}
	if len(engine.ids) != 2 || engine.ids[0] == engine.ids[1] {
		t.Fatalf("expected distinct correlation ids, got %v", engine.ids)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.WorkspaceRoot, "2021", "210302_INSTR2_0003_BNEWFC2")); err != nil {
		t.Fatalf("expected workspace under year directory: %v", err)
	}

	entries, err := j.List(context.Background(), journal.Filter{})
	if err != nil || len(entries) != 2 {
		t.Fatalf("journal entries: %v %+v", err, entries)
	}
	if entries[0].Disposition != "complete" || entries[0].Delivery != "seq" || len(entries[0].Writes) != 2 {
		t.Fatalf("unexpected journal entry %+v", entries[0])
	}

	families, err := metrics.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() == "seqpoll_runs_skipped_total" && len(family.GetMetric()) != 2 {
			t.Fatalf("expected two skip reasons, got %d", len(family.GetMetric()))
		}
	}
}

func TestRunSkipsLockedRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fixture := testsupport.NewRun(t, testsupport.RunsRoot(cfg), "210301_INSTR2_0002_BNEWFC1", 1)
	id, err := runid.Parse(fixture.Name)
	if err != nil {
		t.Fatal(err)
	}
	held, err := runlock.TryAcquire(workspace.New(cfg.Paths.WorkspaceRoot, id).Dir)
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	defer held.Release()

	engine := &fakeEngine{}
	opts := poller.OptionsFromConfig(cfg, lifecycle.ModeAll, time.Now())
	summary, err := poller.New(opts, engine, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Busy != 1 || len(engine.runs) != 0 {
		t.Fatalf("expected locked run to be skipped, summary %+v runs %v", summary, engine.runs)
	}
}

func TestRunIsolatesPassFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := testsupport.RunsRoot(cfg)
	testsupport.NewRun(t, root, "210301_INSTR2_0001_BFAILFC", 1)
	testsupport.NewRun(t, root, "210302_INSTR2_0002_BGOODFC", 1)

	engine := &fakeEngine{failOn: map[string]error{
		"210301_INSTR2_0001_BFAILFC": errors.New("status store unavailable"),
	}}
	j := testsupport.MustOpenJournal(t, cfg)
	metrics := poller.NewMetrics()
	opts := poller.OptionsFromConfig(cfg, lifecycle.ModeAll, time.Now())

	summary, err := poller.New(opts, engine, nil, poller.WithJournal(j), poller.WithMetrics(metrics)).Run(context.Background())
	if !errors.Is(err, poller.ErrPassFailures) {
		t.Fatalf("expected ErrPassFailures, got %v", err)
	}
	if summary.Errors != 1 || summary.Passes != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	entries, _ := j.List(context.Background(), journal.Filter{Run: "210301_INSTR2_0001_BFAILFC"})
	if len(entries) != 1 || entries[0].Disposition != "error" || !strings.Contains(entries[0].Error, "unavailable") {
		t.Fatalf("unexpected journal entry %+v", entries)
	}

	path := cfg.Metrics.TextfilePath
	if err := metrics.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	for _, want := range []string{
		"seqpoll_runs_discovered_total 2",
		`seqpoll_passes_total{outcome="error"} 1`,
		`seqpoll_passes_total{outcome="complete"} 1`,
		"seqpoll_last_poll_timestamp_seconds",
	} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("metrics textfile missing %q:\n%s", want, data)
		}
	}
}

func TestRunStopsAfterCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := testsupport.RunsRoot(cfg)
	testsupport.NewRun(t, root, "210301_INSTR2_0001_BFC1", 1)
	testsupport.NewRun(t, root, "210302_INSTR2_0002_BFC2", 1)

	ctx, cancel := context.WithCancel(context.Background())
	engine := &cancellingEngine{cancel: cancel}
	opts := poller.OptionsFromConfig(cfg, lifecycle.ModeAll, time.Now())
	if _, err := poller.New(opts, engine, nil).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if engine.calls != 1 {
		t.Fatalf("expected poll to stop after the in-flight pass, got %d passes", engine.calls)
	}
}

type cancellingEngine struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancellingEngine) Pass(context.Context, lifecycle.Run) (lifecycle.PassResult, error) {
	c.calls++
	c.cancel()
	return lifecycle.PassResult{Disposition: lifecycle.DispositionIdle}, nil
}

func TestOptionsValidate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	opts := poller.OptionsFromConfig(cfg, lifecycle.ModeRegister, time.Now())
	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	opts.MaxDepth = 0
	if _, err := poller.New(opts, &fakeEngine{}, nil).Run(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	cfg.Scan.MinYear = 0
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	if got := poller.OptionsFromConfig(cfg, lifecycle.ModeAll, now).MinYear; got != 2026 {
		t.Fatalf("expected min year to follow the calendar, got %d", got)
	}
}
