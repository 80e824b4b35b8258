package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldUin is the standardized structured logging key for account identifiers.
	FieldUin = "uin"
	// FieldAbstime is the standardized structured logging key for feed publication times.
	FieldAbstime = "abstime"
	// FieldBatchID is the standardized structured logging key for fetch batch identifiers.
	FieldBatchID = "batch_id"
)

type contextKey string

const (
	uinKey     contextKey = "uin"
	batchIDKey contextKey = "batch_id"
)

// WithUin attaches an account identifier to the context for log enrichment.
func WithUin(ctx context.Context, uin int64) context.Context {
	return context.WithValue(ctx, uinKey, uin)
}

// WithBatchID attaches a fetch batch identifier to the context.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if uin, ok := ctx.Value(uinKey).(int64); ok {
		fields = append(fields, slog.Int64(FieldUin, uin))
	}
	if id, ok := ctx.Value(batchIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldBatchID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
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
