package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry carrying a
// traced context.
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL trace correlation.
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a logger tagged with the service name.
func NewLogger(service string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger bound to ctx for trace propagation.
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// LogScanFailure records a describer failure absorbed by the
// aggregator. The provider boundary already logged service and
// operation, this marks which label degraded to empty.
func (l *Logger) LogScanFailure(ctx context.Context, label string, err error) {
	l.WithContext(ctx).Warn().
		Err(err).
		Str("label", label).
		Msg("describer failed, label degraded to empty")
}

// LogCacheError records a cache backend failure that degraded to a
// miss or a skipped write.
func (l *Logger) LogCacheError(ctx context.Context, operation string, profileID int64, err error) {
	l.WithContext(ctx).Warn().
		Err(err).
		Str("operation", operation).
		Int64("profile_id", profileID).
		Msg("cache backend unavailable")
}
