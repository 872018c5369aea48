package otelbridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracerProvider(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestStartSpanRecordsToConfiguredProvider(t *testing.T) {
	recorder := setupTestTracerProvider(t)
	p := New("taskmind-test")

	ctx, span := p.StartSpan(context.Background(), "unit-of-work")
	span.SetAttribute("example", "value")
	span.RecordError(errors.New("boom"))
	span.End()

	require.NotNil(t, ctx)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "unit-of-work", spans[0].Name())
}

func TestRecordMetricDoesNotPanicForCounterOrHistogramNames(t *testing.T) {
	p := New("taskmind-test")
	assert.NotPanics(t, func() {
		p.RecordMetric("tasks.errors.count", 1, map[string]string{"workflow": "wf-1"})
		p.RecordMetric("tasks.duration.ms", 42.5, map[string]string{"workflow": "wf-1"})
		p.RecordMetric("tasks.unrecognized_metric", 7, nil)
	})
}

func TestRecordMetricCachesInstrumentsPerName(t *testing.T) {
	p := New("taskmind-test")
	p.RecordMetric("tasks.errors.count", 1, nil)
	p.RecordMetric("tasks.errors.count", 1, nil)
	assert.Len(t, p.counters, 1)
}
