// Package executor implements the parallel executor: it runs a
// dependency-ordered list of task batches against a worker pool bounded
// by maxThreads and maxParallelTasksPerBatch, persisting each task's
// output as it completes and honoring per-task timeouts and workflow
// cancellation. Agents are in-process Go values, never invoked over a
// network transport.
package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/taskmind/taskmind/agent"
	"github.com/taskmind/taskmind/depgraph"
	"github.com/taskmind/taskmind/engine"
	"github.com/taskmind/taskmind/store"
)

// AgentFactory builds the implicit agent that will execute one task. The
// executor never holds a reference to an orchestrator; callers typically
// bind this to orchestrator.CreateImplicitAgent.
type AgentFactory func(ctx context.Context, task engine.TaskDefinition) (*agent.Agent, error)

// Config bounds the executor's concurrency and per-task patience.
type Config struct {
	MaxThreads               int
	MaxParallelTasksPerBatch int
	TaskTimeoutSeconds       int
	FallbackToSequential     bool
}

func (c Config) normalized() Config {
	out := c
	if out.MaxThreads <= 0 {
		out.MaxThreads = 5
	}
	if out.MaxParallelTasksPerBatch <= 0 {
		out.MaxParallelTasksPerBatch = out.MaxThreads
	}
	if out.TaskTimeoutSeconds <= 0 {
		out.TaskTimeoutSeconds = 60
	}
	return out
}

// TaskTimeoutError reports that a task's execution exceeded
// Config.TaskTimeoutSeconds. It is recorded as that task's failed result,
// not escalated — a timeout does not abort sibling tasks in the same
// batch, only subsequent batches (see ParallelExecutor.Execute).
type TaskTimeoutError struct {
	TaskName string
	Timeout  time.Duration
}

func (e *TaskTimeoutError) Error() string {
	return fmt.Sprintf("executor: task %q exceeded timeout of %s", e.TaskName, e.Timeout)
}

// ParallelExecutor runs batches of tasks with bounded concurrency,
// persisting outputs via store.Store as they complete.
type ParallelExecutor struct {
	store     store.Store
	config    Config
	logger    engine.Logger
	telemetry engine.Telemetry
}

// New returns a ParallelExecutor backed by s.
func New(s store.Store, cfg Config, logger engine.Logger, telemetry engine.Telemetry) *ParallelExecutor {
	return &ParallelExecutor{
		store:     s,
		config:    cfg.normalized(),
		logger:    engine.ResolveLogger(logger, "executor"),
		telemetry: engine.ResolveTelemetry(telemetry),
	}
}

// namedResult pairs a task name with its outcome, used internally to
// restore plan order after concurrent dispatch within one batch.
type namedResult struct {
	name   string
	result engine.ExecutionResult
}

// Execute runs batches strictly in order — batch n+1 does not begin until
// every task of batch n has completed. A task-scoped failure (agent error,
// timeout) is recorded as that task's failed ExecutionResult and halts
// only subsequent batches; sibling tasks in the same batch still run to
// completion. The returned list contains every task that was dispatched,
// in plan order; tasks never dispatched do not appear.
//
// A non-task-scoped failure (a persistence write/read failure, workflow
// cancellation) escalates as a Go error. If config enables fallback, the
// whole plan is then re-run sequentially from scratch, consulting the
// store so no already-persisted task repeats.
func (e *ParallelExecutor) Execute(
	ctx context.Context,
	workflowID engine.WorkflowID,
	userRequest string,
	planOrder []engine.TaskDefinition,
	batches [][]engine.TaskDefinition,
	factory AgentFactory,
) ([]engine.ExecutionResult, error) {
	results, err := e.executeBatches(ctx, workflowID, userRequest, planOrder, batches, factory)
	if err != nil && e.config.FallbackToSequential {
		e.logger.WarnWithContext(ctx, "executor: parallel execution failed, falling back to sequential", map[string]interface{}{
			"workflow_id": string(workflowID),
			"error":       err.Error(),
		})
		return e.ExecuteSequential(ctx, workflowID, userRequest, planOrder, factory)
	}
	return results, err
}

func flatten(batches [][]engine.TaskDefinition) []engine.TaskDefinition {
	var all []engine.TaskDefinition
	for _, b := range batches {
		all = append(all, b...)
	}
	return all
}

func (e *ParallelExecutor) executeBatches(
	ctx context.Context,
	workflowID engine.WorkflowID,
	userRequest string,
	planOrder []engine.TaskDefinition,
	batches [][]engine.TaskDefinition,
	factory AgentFactory,
) ([]engine.ExecutionResult, error) {
	planIndex := make(map[string]int, len(planOrder))
	for i, t := range planOrder {
		planIndex[t.Name] = i
	}

	completedOutputs := make(map[string]string)
	prevOutput := ""
	bestPlanIndex := -1
	var completed []namedResult

	for _, batch := range batches {
		batchResults, err := e.runBatch(ctx, workflowID, userRequest, batch, completedOutputs, prevOutput, factory)
		if err != nil {
			return nil, err
		}

		anyFailed := false
		for _, r := range batchResults {
			completed = append(completed, r)
			if r.result.Success {
				completedOutputs[r.name] = r.result.Output

				// prev_output tracks the completed task with the greatest
				// plan index, not the last task of the most recent batch —
				// a plan-later task can land in an earlier wavefront than
				// a plan-earlier one.
				if idx := planIndex[r.name]; idx > bestPlanIndex {
					bestPlanIndex = idx
					prevOutput = r.result.Output
				}
			} else {
				anyFailed = true
			}
		}

		if anyFailed {
			// A failed task halts graph progress in the default policy:
			// sibling tasks in this batch already ran to completion, but
			// no further batch is dispatched.
			break
		}
	}

	// Batch order need not match plan order, so restore plan order here.
	sort.SliceStable(completed, func(i, j int) bool {
		return planIndex[completed[i].name] < planIndex[completed[j].name]
	})
	allResults := make([]engine.ExecutionResult, len(completed))
	for i, r := range completed {
		allResults[i] = r.result
	}
	return allResults, nil
}

// runBatch dispatches every task in batch concurrently, bounded by a
// semaphore, and returns one namedResult per task in the batch's input
// order. A non-nil error means a non-task-scoped failure occurred
// (persistence, cancellation) and the whole batch — and the workflow —
// must stop; individual task failures are folded into namedResult.result
// instead.
func (e *ParallelExecutor) runBatch(
	ctx context.Context,
	workflowID engine.WorkflowID,
	userRequest string,
	batch []engine.TaskDefinition,
	completedOutputs map[string]string,
	prevOutput string,
	factory AgentFactory,
) ([]namedResult, error) {
	semSize := e.config.MaxParallelTasksPerBatch
	if semSize > e.config.MaxThreads {
		semSize = e.config.MaxThreads
	}
	semaphore := make(chan struct{}, semSize)

	results := make([]namedResult, len(batch))
	escalations := make([]error, len(batch))
	var wg sync.WaitGroup

	for i, task := range batch {
		wg.Add(1)
		go func(i int, task engine.TaskDefinition) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				escalations[i] = engine.NewCancellationError("executor.runBatch", ctx.Err())
				return
			}

			result, err := e.runTask(ctx, workflowID, userRequest, task, completedOutputs, prevOutput, factory)
			if err != nil {
				escalations[i] = err
				return
			}
			results[i] = namedResult{name: task.Name, result: result}
		}(i, task)
	}

	wg.Wait()

	for _, err := range escalations {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// runTask executes one task, skipping it if already persisted. The
// returned error is non-nil only for non-task-scoped failures
// (persistence read/write, workflow cancellation); every other failure mode (agent error,
// timeout, unknown tool) is folded into a failed ExecutionResult.
func (e *ParallelExecutor) runTask(
	ctx context.Context,
	workflowID engine.WorkflowID,
	userRequest string,
	task engine.TaskDefinition,
	completedOutputs map[string]string,
	prevOutput string,
	factory AgentFactory,
) (engine.ExecutionResult, error) {
	outputs, err := e.store.LoadTaskOutputs(ctx, workflowID)
	if err != nil {
		return engine.ExecutionResult{}, &store.PersistenceFailure{Op: "LoadTaskOutputs", Key: string(workflowID), Err: err}
	}
	for _, o := range outputs {
		if o.TaskName == task.Name {
			return engine.ExecutionResult{Success: true, Output: o.Output}, nil
		}
	}

	vars := make(map[string]string, len(completedOutputs)+2)
	for name, output := range completedOutputs {
		vars[name] = output
	}
	vars[engine.PlaceholderUserRequest] = userRequest
	vars[engine.PlaceholderPrevOutput] = prevOutput

	rendered := depgraph.Render(task.PromptTemplate, vars, e.logger)

	taskCtx, cancel := context.WithTimeout(ctx, time.Duration(e.config.TaskTimeoutSeconds)*time.Second)
	defer cancel()

	a, err := factory(taskCtx, task)
	if err != nil {
		return engine.ExecutionResult{Success: false, Output: "[ERROR: " + err.Error() + "]"}, nil
	}

	result, err := a.Execute(taskCtx, engine.ExecutionInput{Content: rendered})
	if err != nil {
		if taskCtx.Err() == context.DeadlineExceeded {
			timeoutErr := &TaskTimeoutError{
				TaskName: task.Name,
				Timeout:  time.Duration(e.config.TaskTimeoutSeconds) * time.Second,
			}
			return engine.ExecutionResult{Success: false, Output: timeoutErr.Error()}, nil
		}
		if ctx.Err() != nil {
			return engine.ExecutionResult{}, engine.NewCancellationError("executor.runTask", ctx.Err())
		}
		return engine.ExecutionResult{Success: false, Output: "[ERROR: " + err.Error() + "]"}, nil
	}

	if result.Success {
		if err := e.store.SaveTaskOutput(ctx, workflowID, task.Name, result.Output); err != nil {
			return engine.ExecutionResult{}, &store.PersistenceFailure{Op: "SaveTaskOutput", Key: task.Name, Err: err}
		}
	}

	return result, nil
}

// ExecuteSequential visits tasks in plan order, skipping any whose output
// is already persisted and updating prev_output after each completion. It
// stops — without error — at the first task-scoped failure, matching the
// parallel path's halt-on-failure policy. It is used both as the explicit
// sequential path (parallelism analysis declined, or task count below the
// configured minimum) and as the fallback from a failed parallel run.
func (e *ParallelExecutor) ExecuteSequential(
	ctx context.Context,
	workflowID engine.WorkflowID,
	userRequest string,
	tasks []engine.TaskDefinition,
	factory AgentFactory,
) ([]engine.ExecutionResult, error) {
	completedOutputs := make(map[string]string, len(tasks))
	prevOutput := ""
	var results []engine.ExecutionResult

	for _, task := range tasks {
		result, err := e.runTask(ctx, workflowID, userRequest, task, completedOutputs, prevOutput, factory)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
		if !result.Success {
			break
		}
		completedOutputs[task.Name] = result.Output
		prevOutput = result.Output
	}

	return results, nil
}
