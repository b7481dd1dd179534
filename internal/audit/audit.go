// Package audit emits structured audit events for every mutating secret
// operation. The events are written through slog so any configured sink
// (stdout collector, file shipper) receives them; the sink itself is external.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Outcome describes how an audited operation ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// Logger records audit events for secret mutations.
type Logger interface {
	// Record emits one audit event. secretID may be empty when the operation
	// failed before a record was resolved (e.g., create with a duplicate name).
	Record(ctx context.Context, operation, secretID string, outcome Outcome)
}

// slogAuditLogger implements Logger on top of a slog.Logger.
type slogAuditLogger struct {
	logger *slog.Logger
}

// NewLogger creates an audit Logger writing through the given slog logger.
func NewLogger(logger *slog.Logger) Logger {
	return &slogAuditLogger{logger: logger.With(slog.String("log_type", "audit"))}
}

// Record emits the event with a UTC timestamp.
func (a *slogAuditLogger) Record(ctx context.Context, operation, secretID string, outcome Outcome) {
	a.logger.LogAttrs(ctx, slog.LevelInfo, "audit event",
		slog.Time("timestamp", time.Now().UTC()),
		slog.String("operation", operation),
		slog.String("secret_id", secretID),
		slog.String("outcome", string(outcome)),
	)
}

// NopLogger discards audit events. Used in tests and tooling commands.
type NopLogger struct{}

// Record does nothing.
func (NopLogger) Record(ctx context.Context, operation, secretID string, outcome Outcome) {}
