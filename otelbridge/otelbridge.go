// Package otelbridge adapts OpenTelemetry's global tracer and meter
// providers to engine.Telemetry. It wraps whatever TracerProvider and
// MeterProvider the host process has already configured rather than
// standing up its own exporter pipeline — exporter wiring is an
// operational concern for the process embedding this engine.
package otelbridge

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskmind/taskmind/engine"
)

// durationSubstrings and counterSubstrings drive a naming heuristic for
// routing an untyped RecordMetric call to the right instrument kind.
// Names matching neither fall back to a histogram, which tolerates both
// point values and distributions.
var (
	durationSubstrings = []string{"duration", "latency", "time"}
	counterSubstrings  = []string{"count", "total", "errors", "success"}
)

// Provider implements engine.Telemetry on top of OpenTelemetry's global
// tracer and meter providers.
type Provider struct {
	tracer trace.Tracer
	meter  metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram
}

// New returns a Provider whose tracer and meter are scoped to
// instrumentationName (conventionally the module path or service name).
// It reads otel.GetTracerProvider/otel.GetMeterProvider at call time, so
// it picks up whatever SDK the host process installs, including the
// no-op implementations OpenTelemetry defaults to when nothing is
// configured.
func New(instrumentationName string) *Provider {
	return &Provider{
		tracer:     otel.Tracer(instrumentationName),
		meter:      otel.Meter(instrumentationName),
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// StartSpan opens a span named name as a child of ctx.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, engine.Span) {
	ctx, span := p.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric routes value to a counter or histogram instrument chosen
// by name's substrings, lazily creating and caching the instrument on
// first use.
func (p *Provider) RecordMetric(name string, value float64, tags map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(tags))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	ctx := context.Background()

	switch {
	case containsAny(name, durationSubstrings):
		p.histogram(name).Record(ctx, value, metric.WithAttributes(attrs...))
	case containsAny(name, counterSubstrings):
		p.counter(name).Add(ctx, value, metric.WithAttributes(attrs...))
	default:
		p.histogram(name).Record(ctx, value, metric.WithAttributes(attrs...))
	}
}

func (p *Provider) counter(name string) metric.Float64Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c
	}
	c, err := p.meter.Float64Counter(name)
	if err != nil {
		c, _ = noop.Meter{}.Float64Counter(name)
	}
	p.counters[name] = c
	return c
}

func (p *Provider) histogram(name string) metric.Float64Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return h
	}
	h, err := p.meter.Float64Histogram(name)
	if err != nil {
		h, _ = noop.Meter{}.Float64Histogram(name)
	}
	p.histograms[name] = h
	return h
}

func containsAny(name string, substrings []string) bool {
	for _, s := range substrings {
		if len(name) >= len(s) {
			for i := 0; i+len(s) <= len(name); i++ {
				if name[i:i+len(s)] == s {
					return true
				}
			}
		}
	}
	return false
}

// otelSpan adapts an OpenTelemetry trace.Span to engine.Span.
type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *otelSpan) RecordError(err error) { s.span.RecordError(err) }
