package logging

import (
	"context"
	"log/slog"

	"seqpoll/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRun is the run directory name.
	FieldRun = "run"
	// FieldRunPath is the absolute run directory path.
	FieldRunPath = "run_path"
	// FieldStage is the lifecycle stage (extract, demultiplex, archive, ...).
	FieldStage = "stage"
	// FieldCategory is the status store category (sequencing or conversion).
	FieldCategory = "category"
	// FieldStatus is a status store value.
	FieldStatus = "status"
	// FieldLane is the flow cell lane number.
	FieldLane = "lane"
	// FieldCorrelationID identifies one lifecycle pass across log lines.
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact       = "impact"
	FieldDecisionType = "decision_type"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if name, ok := services.RunNameFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRun, name))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if lane, ok := services.LaneFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldLane, lane))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
