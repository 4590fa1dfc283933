package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry
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

// Logger wraps zerolog with OTEL integration
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a component logger on top of the global logger, so it
// picks up the level and output chosen by ConfigureGlobal.
func NewLogger(component string) *Logger {
	logger := log.Logger.With().
		Str("component", component).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// NewLoggerTo is NewLogger writing to w. Tests use it to capture output.
func NewLoggerTo(w io.Writer, component string) *Logger {
	logger := zerolog.New(w).
		With().
		Timestamp().
		Str("component", component).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger with context (for trace propagation)
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// ConfigureGlobal sets the process-wide log level and format. format is
// "json" or "console".
func ConfigureGlobal(service, level, format string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	var out io.Writer = os.Stdout
	switch strings.ToLower(format) {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	default:
		return fmt.Errorf("log format %q: want json or console", format)
	}

	log.Logger = zerolog.New(out).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})
	return nil
}
