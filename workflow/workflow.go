// Package workflow implements the end-to-end entry point: it loads or
// plans a workflow, decides parallel vs. sequential execution, runs it,
// and returns the ordered results. No natural-language response
// synthesis — Run returns an ordered ExecutionResult list, not a
// synthesized reply.
package workflow

import (
	"context"

	"github.com/taskmind/taskmind/agent"
	"github.com/taskmind/taskmind/depgraph"
	"github.com/taskmind/taskmind/engine"
	"github.com/taskmind/taskmind/executor"
	"github.com/taskmind/taskmind/llm"
	"github.com/taskmind/taskmind/orchestrator"
	"github.com/taskmind/taskmind/planner"
	"github.com/taskmind/taskmind/store"
)

// ParallelismConfig governs the parallel-vs-sequential decision in step 2
// of Run.
type ParallelismConfig struct {
	Enabled                     bool
	MaxThreads                  int
	MaxParallelTasksPerBatch    int
	TaskTimeoutSeconds          int
	MinTasksForParallel         int
	ParallelismThreshold        float64
	FallbackToSequentialEnabled bool
}

// Engine ties the planner, dependency analyzer, and executor together
// behind the single Run entry point.
type Engine struct {
	Store     store.Store
	Config    ParallelismConfig
	Logger    engine.Logger
	Telemetry engine.Telemetry
}

// New returns an Engine backed by s.
func New(s store.Store, cfg ParallelismConfig, logger engine.Logger, telemetry engine.Telemetry) *Engine {
	return &Engine{
		Store:     s,
		Config:    cfg,
		Logger:    engine.ResolveLogger(logger, "workflow"),
		Telemetry: engine.ResolveTelemetry(telemetry),
	}
}

// Run is runWorkflow: it loads a persisted plan for workflowID or asks
// plannerClient to produce and save one (save failure is fatal), decides
// between parallel and sequential execution, runs the plan, and returns
// the ordered ExecutionResult list.
func (e *Engine) Run(
	ctx context.Context,
	workflowID engine.WorkflowID,
	userRequest string,
	plannerClient llm.Client,
	workerClient llm.Client,
) ([]engine.ExecutionResult, error) {
	plan, err := e.loadOrCreatePlan(ctx, workflowID, userRequest, plannerClient)
	if err != nil {
		return nil, err
	}

	analysis, err := depgraph.Analyze(plan.Tasks)
	if err != nil {
		return nil, err
	}

	orch := orchestrator.New(orchestrator.Config{
		Store:      e.Store,
		WorkflowID: workflowID,
		Logger:     e.Logger,
		Telemetry:  e.Telemetry,
	})
	factory := func(ctx context.Context, task engine.TaskDefinition) (*agent.Agent, error) {
		return orch.CreateImplicitAgent(ctx, task.Name, task.Description, workerClient, task.PromptTemplate)
	}

	exec := executor.New(e.Store, executor.Config{
		MaxThreads:               e.Config.MaxThreads,
		MaxParallelTasksPerBatch: e.Config.MaxParallelTasksPerBatch,
		TaskTimeoutSeconds:       e.Config.TaskTimeoutSeconds,
		FallbackToSequential:     e.Config.FallbackToSequentialEnabled,
	}, e.Logger, e.Telemetry)

	if e.useParallel(len(plan.Tasks), analysis.ParallelismRatio) {
		return exec.Execute(ctx, workflowID, userRequest, plan.Tasks, analysis.Batches, factory)
	}

	return exec.ExecuteSequential(ctx, workflowID, userRequest, plan.Tasks, factory)
}

func (e *Engine) loadOrCreatePlan(ctx context.Context, workflowID engine.WorkflowID, userRequest string, plannerClient llm.Client) (engine.Plan, error) {
	existing, ok, err := e.Store.LoadPlan(ctx, workflowID)
	if err != nil {
		return engine.Plan{}, &store.PersistenceFailure{Op: "LoadPlan", Key: string(workflowID), Err: err}
	}
	if ok {
		return *existing, nil
	}

	p := planner.New(plannerClient)
	plan, err := p.Plan(ctx, userRequest)
	if err != nil {
		return engine.Plan{}, err
	}

	if err := e.Store.SavePlan(ctx, workflowID, plan); err != nil {
		return engine.Plan{}, &store.PersistenceFailure{Op: "SavePlan", Key: string(workflowID), Err: err}
	}

	return plan, nil
}

// useParallel implements step 2's decision table: disabled by config ->
// sequential; numTasks < minTasksForParallel -> sequential;
// parallelismRatio > threshold -> parallel; else sequential.
func (e *Engine) useParallel(numTasks int, parallelismRatio float64) bool {
	if !e.Config.Enabled {
		return false
	}
	if numTasks < e.Config.MinTasksForParallel {
		return false
	}
	return parallelismRatio > e.Config.ParallelismThreshold
}
