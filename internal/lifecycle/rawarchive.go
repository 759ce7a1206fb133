package lifecycle

import (
	"context"
	"fmt"
	"time"

	"seqpoll/internal/logging"
	"seqpoll/internal/services"
	"seqpoll/internal/workspace"
)

// archiveLanes is transition (c): one archive per lane from the instrument
// run directory. Every lane is attempted; any failed lane fails the branch.
func (p *pass) archiveLanes(ctx context.Context, lanes int) BranchResult {
	ctx = services.WithStage(ctx, "archive")
	logger := p.logger.With(logging.String(logging.FieldStage, "archive"))
	toolCtx := context.WithoutCancel(ctx)
	branch := BranchResult{Name: "archive", Outcome: OutcomeComplete}
	ws := p.run.Workspace

	defer func() { p.marker(workspace.MarkerRawArchivesDone, branch.Outcome.String()) }()

	started := time.Now()
	check := p.opts.FreeSpace("Raw archives", ws.Dir, p.opts.MinFreeGiB)
	var err error
	if !check.Passed {
		err = services.Wrap(services.ErrTransient, "archive", "free space", check.Detail, nil)
	}
	if !branch.record("free_space", started, err) {
		logging.ErrorWithContext(logger, "insufficient space for raw archives", "archive_space",
			logging.String("detail", check.Detail),
			logging.String(logging.FieldErrorHint, "free disk space or lower archive.min_free_gib, then reset conversion status"),
		)
		return branch
	}

	failed := 0
	for lane := 1; lane <= lanes; lane++ {
		laneLogger := logger.With(logging.Int(logging.FieldLane, lane))
		started := time.Now()
		result, err := p.archiver.BuildLane(toolCtx, p.run.Path, lane, ws.ArchivePath(lane))
		if !branch.record(fmt.Sprintf("lane_%d", lane), started, err) {
			failed++
			logging.ErrorWithContext(laneLogger, "lane archive failed", "archive_lane_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the run directory for lane data and the compressor"),
			)
			continue
		}
		laneLogger.Info("lane archived",
			logging.String("archive", result.Path),
			logging.String("md5", result.Checksum),
			logging.Int("files", result.Files),
			logging.Int64("bytes", result.Bytes),
			logging.Duration("duration", result.Duration),
		)
	}
	if failed > 0 {
		logger.Warn("raw archiving finished with failures",
			logging.Int("failed_lanes", failed),
			logging.Int("lanes", lanes),
			logging.String(logging.FieldEventType, "archive_failed"),
			logging.String(logging.FieldImpact, "conversion marked failed"),
			logging.String(logging.FieldErrorHint, "reset conversion status after fixing the failing lanes"),
		)
	}
	return branch
}
