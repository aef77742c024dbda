package logging

import (
	"context"
	"log/slog"
)

type renderIDKey struct{}

// WithRenderID stores a render correlation id on ctx.
func WithRenderID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, renderIDKey{}, id)
}

// RenderIDFromContext returns the render correlation id, if any.
func RenderIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(renderIDKey{}).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if id, ok := RenderIDFromContext(ctx); ok {
		return []slog.Attr{slog.String(FieldRenderID, id)}
	}
	return nil
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
