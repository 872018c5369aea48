package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmind/taskmind/engine"
	"github.com/taskmind/taskmind/llm"
	"github.com/taskmind/taskmind/store"
	"github.com/taskmind/taskmind/tool"
)

// recordingTelemetry is a fake engine.Telemetry that captures every
// RecordMetric call, for asserting on the metric names and tags a
// component emits.
type recordingTelemetry struct {
	mu      sync.Mutex
	metrics []recordedMetric
}

type recordedMetric struct {
	name  string
	value float64
	tags  map[string]string
}

func (r *recordingTelemetry) StartSpan(ctx context.Context, name string) (context.Context, engine.Span) {
	return ctx, noOpTestSpan{}
}

func (r *recordingTelemetry) RecordMetric(name string, value float64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, recordedMetric{name: name, value: value, tags: tags})
}

func (r *recordingTelemetry) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.metrics))
	for i, m := range r.metrics {
		out[i] = m.name
	}
	return out
}

type noOpTestSpan struct{}

func (noOpTestSpan) End()                             {}
func (noOpTestSpan) SetAttribute(string, interface{}) {}
func (noOpTestSpan) RecordError(error)                {}

func newTestAgent(t *testing.T, client llm.Client, tools *tool.Registry) (*Agent, store.Store) {
	t.Helper()
	s := store.NewMemoryStore(engine.NoOpLogger{})
	a, err := New(context.Background(), Config{
		Name:        "worker-1",
		Description: "does work",
		Client:      client,
		Store:       s,
		WorkflowID:  engine.NewWorkflowID(),
		Tools:       tools,
	})
	require.NoError(t, err)
	return a, s
}

func TestExecutePlainResponseAppendsMemoryAndReturnsOutput(t *testing.T) {
	client := llm.NewMock("the answer is 42")
	a, _ := newTestAgent(t, client, nil)

	result, err := a.Execute(context.Background(), engine.ExecutionInput{Content: "what is the answer?"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "the answer is 42", result.Output)

	mem := a.Memory()
	require.Len(t, mem, 1)
	assert.Contains(t, mem[0], "LLM_OUTPUT:")
	assert.Contains(t, mem[0], "the answer is 42")
}

func TestExecuteUnknownToolReturnsFailureNotError(t *testing.T) {
	registry := tool.NewRegistry()
	registry.Register(&tool.FuncTool{
		NameValue:        "known_tool",
		DescriptionValue: "a tool that exists",
		RunFunc: func(ctx context.Context, input engine.ExecutionInput) (engine.ExecutionResult, error) {
			return engine.ExecutionResult{Success: true, Output: "ran"}, nil
		},
	})

	client := llm.NewMock(`{"tool": "nonexistent_tool", "arguments": "do something"}`)
	a, _ := newTestAgent(t, client, registry)

	result, err := a.Execute(context.Background(), engine.ExecutionInput{Content: "please help"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Output, "unknown tool")
	assert.Contains(t, result.Output, "nonexistent_tool")

	// Unknown-tool dispatch does not append a memory entry.
	assert.Empty(t, a.Memory())
}

func TestExecuteKnownToolDispatchesAndRecordsMemory(t *testing.T) {
	registry := tool.NewRegistry()
	registry.Register(&tool.FuncTool{
		NameValue:        "search",
		DescriptionValue: "searches something",
		RunFunc: func(ctx context.Context, input engine.ExecutionInput) (engine.ExecutionResult, error) {
			return engine.ExecutionResult{Success: true, Output: "found: " + input.Content}, nil
		},
	})

	client := llm.NewMock(`{"tool": "search", "arguments": "golang generics"}`)
	a, _ := newTestAgent(t, client, registry)

	result, err := a.Execute(context.Background(), engine.ExecutionInput{Content: "search for generics"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "found: golang generics", result.Output)

	mem := a.Memory()
	require.Len(t, mem, 1)
	assert.Contains(t, mem[0], "TOOL_CALL search")
	assert.Contains(t, mem[0], "golang generics")
}

func TestExecuteBlankInputIsArgumentError(t *testing.T) {
	a, _ := newTestAgent(t, llm.NewMock("x"), nil)

	_, err := a.Execute(context.Background(), engine.ExecutionInput{Content: "   "})
	require.Error(t, err)
	var argErr *engine.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestExecutePropagatesProviderFailure(t *testing.T) {
	boom := errors.New("connection refused")
	client := &llm.Mock{Fn: func(ctx context.Context, prompt string) (string, error) {
		return "", boom
	}}
	a, _ := newTestAgent(t, client, nil)

	_, err := a.Execute(context.Background(), engine.ExecutionInput{Content: "hello"})
	require.Error(t, err)
	var pf *llm.ProviderFailure
	require.True(t, errors.As(err, &pf))
	assert.ErrorIs(t, pf, boom)
}

func TestMemoryIsAppendOnlyAcrossExecutions(t *testing.T) {
	client := llm.NewMock("first", "second", "third")
	a, _ := newTestAgent(t, client, nil)

	for i := 0; i < 3; i++ {
		_, err := a.Execute(context.Background(), engine.ExecutionInput{Content: "go"})
		require.NoError(t, err)
	}

	mem := a.Memory()
	require.Len(t, mem, 3)
	assert.Contains(t, mem[0], "first")
	assert.Contains(t, mem[1], "second")
	assert.Contains(t, mem[2], "third")
}

func TestNewRehydratesMemoryFromStore(t *testing.T) {
	s := store.NewMemoryStore(engine.NoOpLogger{})
	wfID := engine.NewWorkflowID()
	require.NoError(t, s.AddMemory(context.Background(), wfID, "worker-1", "LLM_OUTPUT: previously said hi"))

	a, err := New(context.Background(), Config{
		Name:       "worker-1",
		Client:     llm.NewMock("ignored"),
		Store:      s,
		WorkflowID: wfID,
	})
	require.NoError(t, err)

	mem := a.Memory()
	require.Len(t, mem, 1)
	assert.Contains(t, mem[0], "previously said hi")
}

func TestExecuteRecordsAgentExecutionMetrics(t *testing.T) {
	telemetry := &recordingTelemetry{}
	s := store.NewMemoryStore(engine.NoOpLogger{})
	a, err := New(context.Background(), Config{
		Name:       "worker-1",
		Client:     llm.NewMock("the answer is 42"),
		Store:      s,
		WorkflowID: engine.NewWorkflowID(),
		Telemetry:  telemetry,
	})
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), engine.ExecutionInput{Content: "what is the answer?"})
	require.NoError(t, err)

	names := telemetry.names()
	assert.Contains(t, names, "agent.execution.duration")
	assert.Contains(t, names, "agent.execution.count")
	assert.NotContains(t, names, "agent.execution.errors")
}

func TestExecuteRecordsAgentExecutionErrorMetricOnProviderFailure(t *testing.T) {
	telemetry := &recordingTelemetry{}
	boom := errors.New("connection refused")
	client := &llm.Mock{Fn: func(ctx context.Context, prompt string) (string, error) { return "", boom }}
	s := store.NewMemoryStore(engine.NoOpLogger{})
	a, err := New(context.Background(), Config{
		Name:       "worker-1",
		Client:     client,
		Store:      s,
		WorkflowID: engine.NewWorkflowID(),
		Telemetry:  telemetry,
	})
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), engine.ExecutionInput{Content: "hello"})
	require.Error(t, err)

	assert.Contains(t, telemetry.names(), "agent.execution.errors")
}

func TestExecuteRecordsToolExecutionMetrics(t *testing.T) {
	telemetry := &recordingTelemetry{}
	registry := tool.NewRegistry()
	registry.Register(&tool.FuncTool{
		NameValue:        "search",
		DescriptionValue: "searches something",
		RunFunc: func(ctx context.Context, input engine.ExecutionInput) (engine.ExecutionResult, error) {
			return engine.ExecutionResult{Success: true, Output: "found: " + input.Content}, nil
		},
	})

	client := llm.NewMock(`{"tool": "search", "arguments": "golang generics"}`)
	s := store.NewMemoryStore(engine.NoOpLogger{})
	a, err := New(context.Background(), Config{
		Name:       "worker-1",
		Client:     client,
		Store:      s,
		WorkflowID: engine.NewWorkflowID(),
		Tools:      registry,
		Telemetry:  telemetry,
	})
	require.NoError(t, err)

	result, err := a.Execute(context.Background(), engine.ExecutionInput{Content: "search for generics"})
	require.NoError(t, err)
	assert.True(t, result.Success)

	names := telemetry.names()
	assert.Contains(t, names, "tool.execution.duration")
	assert.Contains(t, names, "tool.execution.count")
	assert.NotContains(t, names, "tool.execution.errors")
}

func TestExecuteRecordsToolExecutionErrorMetricForUnknownTool(t *testing.T) {
	telemetry := &recordingTelemetry{}
	registry := tool.NewRegistry()
	client := llm.NewMock(`{"tool": "nonexistent_tool", "arguments": "do something"}`)
	s := store.NewMemoryStore(engine.NoOpLogger{})
	a, err := New(context.Background(), Config{
		Name:       "worker-1",
		Client:     client,
		Store:      s,
		WorkflowID: engine.NewWorkflowID(),
		Tools:      registry,
		Telemetry:  telemetry,
	})
	require.NoError(t, err)

	result, err := a.Execute(context.Background(), engine.ExecutionInput{Content: "please help"})
	require.NoError(t, err)
	assert.False(t, result.Success)

	assert.Contains(t, telemetry.names(), "tool.execution.errors")
}

func TestParseToolCallRejectsPartialOrMalformedJSON(t *testing.T) {
	_, ok := ParseToolCall(`not json at all`)
	assert.False(t, ok)

	_, ok = ParseToolCall(`{"tool": "x"}`)
	assert.False(t, ok, "missing arguments field")

	_, ok = ParseToolCall(`{"tool": "", "arguments": "y"}`)
	assert.False(t, ok, "empty tool name")

	_, ok = ParseToolCall(`{"tool": "x", "arguments": "y"} trailing garbage`)
	assert.False(t, ok, "trailing content after JSON value")

	call, ok := ParseToolCall(`  {"tool": "x", "arguments": "y"}  `)
	require.True(t, ok)
	assert.Equal(t, "x", call.Tool)
	assert.Equal(t, "y", call.Arguments)
}
