// Package store implements the persistence layer: a keyed,
// workflow-scoped map of (workflow, key) → value for agent memory, task
// outputs, and the plan itself. Two backends are provided: MemoryStore
// (in-process, used by tests and the isolated-store contract) and
// RedisStore (durable, production). Both satisfy Store.
package store

import (
	"context"
	"fmt"

	"github.com/taskmind/taskmind/engine"
)

// TaskOutput is one persisted task result. Stores return outputs in the
// order each task's output was first saved.
type TaskOutput struct {
	TaskName string
	Output   string
}

// Store is the persistence contract every component in this module
// depends on. All operations must be thread-safe and durable across
// process restart; a value written and then read back must be
// byte-identical.
type Store interface {
	// AddMemory appends an opaque string to an agent's memory log. Failure
	// to persist memory is non-fatal to callers (see agent.Agent); the
	// store itself still reports the error so the caller can log it.
	AddMemory(ctx context.Context, workflowID engine.WorkflowID, agentName, entry string) error

	// LoadMemory returns an agent's memory log, oldest to newest.
	LoadMemory(ctx context.Context, workflowID engine.WorkflowID, agentName string) ([]string, error)

	// SavePlan idempotently overwrites the plan for a workflow.
	SavePlan(ctx context.Context, workflowID engine.WorkflowID, plan engine.Plan) error

	// LoadPlan returns the saved plan, if any.
	LoadPlan(ctx context.Context, workflowID engine.WorkflowID) (*engine.Plan, bool, error)

	// SaveTaskOutput overwrites the output for (workflowID, taskName).
	SaveTaskOutput(ctx context.Context, workflowID engine.WorkflowID, taskName, output string) error

	// LoadTaskOutputs returns every persisted output for a workflow, in
	// the order the tasks completed.
	LoadTaskOutputs(ctx context.Context, workflowID engine.WorkflowID) ([]TaskOutput, error)

	// DeleteWorkflow atomically (from the caller's perspective) removes the
	// plan, task outputs, and every agent memory log owned by a workflow.
	DeleteWorkflow(ctx context.Context, workflowID engine.WorkflowID) error
}

// PersistenceFailure reports a failed write against the store. Plan and
// task-output write failures are fatal to the caller; memory write
// failures are logged and swallowed by agent.Agent, never by the store
// itself.
type PersistenceFailure struct {
	Op  string // e.g. "SavePlan", "SaveTaskOutput", "AddMemory"
	Key string
	Err error
}

func (e *PersistenceFailure) Error() string {
	return fmt.Sprintf("store: %s failed for %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceFailure) Unwrap() error { return e.Err }

func newFailure(op, key string, err error) *PersistenceFailure {
	return &PersistenceFailure{Op: op, Key: key, Err: err}
}

// TaskOutputMap is a convenience accessor turning an ordered slice into a
// name→output lookup.
func TaskOutputMap(outputs []TaskOutput) map[string]string {
	m := make(map[string]string, len(outputs))
	for _, o := range outputs {
		m[o.TaskName] = o.Output
	}
	return m
}
