package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmind/taskmind/agent"
	"github.com/taskmind/taskmind/engine"
	"github.com/taskmind/taskmind/llm"
	"github.com/taskmind/taskmind/store"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	return New(Config{
		Store:      store.NewMemoryStore(engine.NoOpLogger{}),
		WorkflowID: engine.NewWorkflowID(),
	})
}

func TestCallExplicitDelegatesToRegisteredAgent(t *testing.T) {
	o := newTestOrchestrator(t)
	a, err := agent.New(context.Background(), agent.Config{
		Name:   "summarizer",
		Client: llm.NewMock("summary text"),
	})
	require.NoError(t, err)
	o.Register(a)

	result, err := o.CallExplicit(context.Background(), "summarizer", engine.ExecutionInput{Content: "summarize this"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "summary text", result.Output)
}

func TestCallExplicitMissingAgentIsArgumentError(t *testing.T) {
	o := newTestOrchestrator(t)

	_, err := o.CallExplicit(context.Background(), "nobody", engine.ExecutionInput{Content: "hi"})
	require.Error(t, err)
	var argErr *engine.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestCallExplicitBlankNameIsArgumentError(t *testing.T) {
	o := newTestOrchestrator(t)

	_, err := o.CallExplicit(context.Background(), "  ", engine.ExecutionInput{Content: "hi"})
	require.Error(t, err)
	var argErr *engine.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestCreateImplicitAgentGeneratesUniqueSuffixedName(t *testing.T) {
	o := newTestOrchestrator(t)

	a1, err := o.CreateImplicitAgent(context.Background(), "worker", "does work", llm.NewMock("ok"), "")
	require.NoError(t, err)
	a2, err := o.CreateImplicitAgent(context.Background(), "worker", "does work", llm.NewMock("ok"), "")
	require.NoError(t, err)

	assert.NotEqual(t, a1.Name(), a2.Name())
	assert.Contains(t, a1.Name(), "worker-")
	assert.Contains(t, a2.Name(), "worker-")

	// Implicit agents are not auto-registered.
	assert.NotContains(t, o.Names(), a1.Name())
}

func TestCreateImplicitAgentRejectsBlankNameHint(t *testing.T) {
	o := newTestOrchestrator(t)

	_, err := o.CreateImplicitAgent(context.Background(), "  ", "desc", llm.NewMock("ok"), "")
	require.Error(t, err)
	var argErr *engine.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestCreateImplicitAgentRejectsNilClient(t *testing.T) {
	o := newTestOrchestrator(t)

	_, err := o.CreateImplicitAgent(context.Background(), "worker", "desc", nil, "")
	require.Error(t, err)
	var argErr *engine.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestImplicitAgentSharesOrchestratorStoreAndWorkflow(t *testing.T) {
	o := newTestOrchestrator(t)

	a, err := o.CreateImplicitAgent(context.Background(), "worker", "does work", llm.NewMock("done"), "")
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), engine.ExecutionInput{Content: "go"})
	require.NoError(t, err)

	entries, err := o.store.LoadMemory(context.Background(), o.workflowID, a.Name())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
