package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"seqpoll/internal/archive"
	"seqpoll/internal/config"
	"seqpoll/internal/deps"
	"seqpoll/internal/journal"
	"seqpoll/internal/lifecycle"
	"seqpoll/internal/logging"
	"seqpoll/internal/poller"
	"seqpoll/internal/preflight"
	"seqpoll/internal/services/tools"
)

type pollFlags struct {
	workspace string
	operator  string
	maxDepth  int
	minYear   int
	step      string
}

func newPollCommand(ctx *commandContext) *cobra.Command {
	var flags pollFlags

	cmd := &cobra.Command{
		Use:   "poll [search-root...]",
		Short: "Scan for runs and advance each one by a single pass",
		Long: "Scan the search roots (arguments, or paths.search_roots) for run directories and run one\n" +
			"lifecycle pass per eligible run. The exit status is non-zero when any pass failed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := applyPollOverrides(base, cmd, args, flags)
			if err != nil {
				return err
			}
			mode, err := lifecycle.ParseMode(flags.step)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPoll(runCtx, ctx, cfg, mode, cmd)
		},
	}

	cmd.Flags().StringVar(&flags.workspace, "workspace", "", "Workspace root (overrides paths.workspace_root)")
	cmd.Flags().StringVar(&flags.operator, "operator", "", "Operator recorded with tool invocations")
	cmd.Flags().IntVar(&flags.maxDepth, "max-depth", 0, "Maximum directory depth below each search root")
	cmd.Flags().IntVar(&flags.minYear, "min-year", 0, "Skip runs from before this year (default: scan.min_year)")
	cmd.Flags().StringVar(&flags.step, "step", string(lifecycle.ModeAll), "Transitions to run: ALL or REGISTER")
	return cmd
}

// applyPollOverrides returns a copy of base with CLI flags applied. The
// loaded configuration itself is never modified.
func applyPollOverrides(base *config.Config, cmd *cobra.Command, roots []string, flags pollFlags) (*config.Config, error) {
	cfg := *base
	if len(roots) > 0 {
		cfg.Paths.SearchRoots = nil
		for _, root := range roots {
			expanded, err := config.ExpandPath(root)
			if err != nil {
				return nil, fmt.Errorf("resolve search root %q: %w", root, err)
			}
			cfg.Paths.SearchRoots = append(cfg.Paths.SearchRoots, expanded)
		}
	}
	if cmd.Flags().Changed("workspace") {
		expanded, err := config.ExpandPath(flags.workspace)
		if err != nil {
			return nil, fmt.Errorf("resolve workspace: %w", err)
		}
		cfg.Paths.WorkspaceRoot = expanded
	}
	if cmd.Flags().Changed("operator") {
		cfg.Operator = strings.TrimSpace(flags.operator)
	}
	if cmd.Flags().Changed("max-depth") {
		cfg.Scan.MaxDepth = flags.maxDepth
	}
	if cmd.Flags().Changed("min-year") {
		cfg.Scan.MinYear = flags.minYear
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Paths.SearchRoots) == 0 {
		return nil, errors.New("no search roots: pass them as arguments or set paths.search_roots")
	}
	if err := cfg.RequireStore(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return &cfg, nil
}

func runPoll(ctx context.Context, cmdCtx *commandContext, cfg *config.Config, mode lifecycle.Mode, cmd *cobra.Command) error {
	logger, err := cmdCtx.logger(cfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	for _, result := range preflight.RunAll(ctx, cfg) {
		if !result.Passed {
			return fmt.Errorf("preflight %s: %s", result.Name, result.Detail)
		}
	}
	for _, missing := range deps.Missing(preflight.CheckTools(cfg)) {
		logging.WarnWithContext(logger, "external tool not found", "tool_missing",
			logging.String("tool", missing.Name),
			logging.String("detail", missing.Detail),
			logging.String(logging.FieldImpact, missing.Description),
			logging.String(logging.FieldErrorHint, "install it or fix the command in the [tools] section"),
		)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: "seqpoll*.log",
		Exclude: []string{filepath.Join(cfg.Paths.LogDir, logging.MainLogFile)},
	})

	store, err := storeClient(cfg, logger)
	if err != nil {
		return err
	}
	runner := tools.New(tools.Commands{
		Extract: cfg.Tools.ExtractCommand,
		Demux:   cfg.Tools.DemuxCommand,
		QC:      cfg.Tools.QCCommand,
	})
	builder := archive.NewBuilder(archive.NewCompressor(cfg.Archive.Compressor), cfg.Archive.ExcludePatterns, logger)
	engine := lifecycle.New(store, runner, builder, lifecycle.Options{
		Mode:         mode,
		Operator:     cfg.Operator,
		QCReportName: cfg.Tools.QCReportName,
		MinFreeGiB:   cfg.Archive.MinFreeGiB,
		LogFormat:    cfg.Logging.Format,
		LogLevel:     logLevel(cfg, cmdCtx.verbose()),
	}, logger)

	metrics := poller.NewMetrics()
	opts := []poller.Option{poller.WithMetrics(metrics)}
	if j := openJournal(ctx, cfg, logger); j != nil {
		defer j.Close()
		opts = append(opts, poller.WithJournal(j))
	}

	driver := poller.New(poller.OptionsFromConfig(cfg, mode, time.Now()), engine, logger, opts...)
	summary, runErr := driver.Run(ctx)
	if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		logging.WarnWithContext(logger, "metrics not written", "metrics_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "textfile collector shows the previous poll"),
		)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Discovered %d runs: %d passes, %d skipped, %d failed\n",
		summary.Discovered, summary.Passes, summary.Malformed+summary.TooOld+summary.Busy, summary.Errors)
	return runErr
}

// openJournal opens the pass journal. A journal problem never blocks a poll.
func openJournal(ctx context.Context, cfg *config.Config, logger *slog.Logger) *journal.Journal {
	if strings.TrimSpace(cfg.Paths.JournalPath) == "" {
		return nil
	}
	j, err := journal.Open(ctx, cfg.Paths.JournalPath)
	if err != nil {
		logging.WarnWithContext(logger, "pass journal unavailable", "journal_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "passes from this poll are missing from seqpoll history"),
			logging.String(logging.FieldErrorHint, "check paths.journal_path"),
		)
		return nil
	}
	return j
}

func logLevel(cfg *config.Config, verbose bool) string {
	if verbose {
		return "debug"
	}
	return cfg.Logging.Level
}
