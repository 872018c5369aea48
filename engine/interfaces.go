// Package engine holds the shared contracts used across the workflow
// engine: structured logging, telemetry, the core data model (tasks,
// plans, execution I/O), and the error taxonomy. Every other package
// depends on engine; engine depends on nothing in this module.
package engine

import "context"

// Logger is the minimal structured logging interface implemented by every
// logger passed into the engine's components. Fields carry structured
// context (request ids, durations, counts) for downstream log processors.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})

	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
}

// ComponentAwareLogger lets a package scope its log lines to a named
// component (e.g. "agent/summarizer-7e2a", "executor") without threading a
// component string through every call site.
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// Telemetry is the narrow metrics/tracing contract the engine emits
// through. Implementations may no-op, forward to OpenTelemetry
// (see otelbridge), or anything else.
type Telemetry interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	RecordMetric(name string, value float64, tags map[string]string)
}

// Span represents one unit of traced work.
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

// NoOpLogger discards everything. It is the zero-value default so
// constructors never need a nil check before calling a logger method.
type NoOpLogger struct{}

func (NoOpLogger) Info(string, map[string]interface{})  {}
func (NoOpLogger) Warn(string, map[string]interface{})  {}
func (NoOpLogger) Error(string, map[string]interface{}) {}
func (NoOpLogger) Debug(string, map[string]interface{}) {}

func (NoOpLogger) InfoWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) WarnWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) ErrorWithContext(context.Context, string, map[string]interface{}) {}
func (NoOpLogger) DebugWithContext(context.Context, string, map[string]interface{}) {}

// WithComponent satisfies ComponentAwareLogger; a no-op logger scoped to
// any component is still a no-op logger.
func (n NoOpLogger) WithComponent(string) Logger { return n }

// NoOpTelemetry discards every metric and returns a no-op span.
type NoOpTelemetry struct{}

func (NoOpTelemetry) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noOpSpan{}
}
func (NoOpTelemetry) RecordMetric(string, float64, map[string]string) {}

type noOpSpan struct{}

func (noOpSpan) End()                               {}
func (noOpSpan) SetAttribute(string, interface{})   {}
func (noOpSpan) RecordError(error)                  {}

// ResolveLogger narrows logger to component if it supports
// ComponentAwareLogger, otherwise returns it unchanged. A nil logger
// resolves to NoOpLogger{}.
func ResolveLogger(logger Logger, component string) Logger {
	if logger == nil {
		return NoOpLogger{}
	}
	if cal, ok := logger.(ComponentAwareLogger); ok {
		return cal.WithComponent(component)
	}
	return logger
}

// ResolveTelemetry returns telemetry unchanged, or NoOpTelemetry{} if nil.
func ResolveTelemetry(telemetry Telemetry) Telemetry {
	if telemetry == nil {
		return NoOpTelemetry{}
	}
	return telemetry
}
