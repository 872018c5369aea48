// Package orchestrator implements the agent registry and implicit-agent
// factory: a thread-safe name→agent map plus a constructor for
// throwaway, unregistered agents used by the parallel executor.
package orchestrator

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/taskmind/taskmind/agent"
	"github.com/taskmind/taskmind/engine"
	"github.com/taskmind/taskmind/llm"
	"github.com/taskmind/taskmind/store"
	"github.com/taskmind/taskmind/tool"
)

// Orchestrator owns a thread-safe agent registry and shares a persistence
// store with every agent it creates or registers.
type Orchestrator struct {
	store      store.Store
	workflowID engine.WorkflowID
	logger     engine.Logger
	telemetry  engine.Telemetry

	mu     sync.RWMutex
	agents map[string]*agent.Agent
}

// Config constructs an Orchestrator.
type Config struct {
	Store      store.Store
	WorkflowID engine.WorkflowID
	Logger     engine.Logger
	Telemetry  engine.Telemetry
}

// New returns an empty Orchestrator scoped to one workflow.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		store:      cfg.Store,
		workflowID: cfg.WorkflowID,
		logger:     engine.ResolveLogger(cfg.Logger, "orchestrator"),
		telemetry:  engine.ResolveTelemetry(cfg.Telemetry),
		agents:     make(map[string]*agent.Agent),
	}
}

// Register adds a named agent to the registry, replacing any prior agent
// under the same name.
func (o *Orchestrator) Register(a *agent.Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agents[a.Name()] = a
}

// CallExplicit looks up name in the registry and delegates input to it.
// Absence is an ArgumentError, not a nil-able miss, since callers name a
// specific agent they expect to exist.
func (o *Orchestrator) CallExplicit(ctx context.Context, name string, input engine.ExecutionInput) (engine.ExecutionResult, error) {
	if strings.TrimSpace(name) == "" {
		return engine.ExecutionResult{}, engine.NewArgumentError("orchestrator.CallExplicit", "name", "must not be blank")
	}

	o.mu.RLock()
	a, ok := o.agents[name]
	o.mu.RUnlock()
	if !ok {
		return engine.ExecutionResult{}, engine.NewArgumentError("orchestrator.CallExplicit", "name", "no agent registered as "+name)
	}

	return a.Execute(ctx, input)
}

// CreateImplicitAgent constructs a fresh, unregistered Agent named
// "<nameHint>-<uuid>". It shares this Orchestrator's store and workflow
// id so its memory is durable and scoped like any registered agent.
func (o *Orchestrator) CreateImplicitAgent(ctx context.Context, nameHint, description string, client llm.Client, promptTemplate string) (*agent.Agent, error) {
	if strings.TrimSpace(nameHint) == "" {
		return nil, engine.NewArgumentError("orchestrator.CreateImplicitAgent", "nameHint", "must not be blank")
	}
	if client == nil {
		return nil, engine.NewArgumentError("orchestrator.CreateImplicitAgent", "client", "must not be nil")
	}

	name := nameHint + "-" + uuid.NewString()
	return agent.New(ctx, agent.Config{
		Name:           name,
		Description:    description,
		Client:         client,
		PromptTemplate: promptTemplate,
		Store:          o.store,
		WorkflowID:     o.workflowID,
		Logger:         o.logger,
		Telemetry:      o.telemetry,
	})
}

// CreateImplicitAgentWithTools is CreateImplicitAgent with a bound tool
// registry, for implicit agents that may dispatch tool calls.
func (o *Orchestrator) CreateImplicitAgentWithTools(ctx context.Context, nameHint, description string, client llm.Client, promptTemplate string, tools *tool.Registry) (*agent.Agent, error) {
	if strings.TrimSpace(nameHint) == "" {
		return nil, engine.NewArgumentError("orchestrator.CreateImplicitAgentWithTools", "nameHint", "must not be blank")
	}
	if client == nil {
		return nil, engine.NewArgumentError("orchestrator.CreateImplicitAgentWithTools", "client", "must not be nil")
	}

	name := nameHint + "-" + uuid.NewString()
	return agent.New(ctx, agent.Config{
		Name:           name,
		Description:    description,
		Client:         client,
		PromptTemplate: promptTemplate,
		Tools:          tools,
		Store:          o.store,
		WorkflowID:     o.workflowID,
		Logger:         o.logger,
		Telemetry:      o.telemetry,
	})
}

// Names returns every registered agent name, order unspecified.
func (o *Orchestrator) Names() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.agents))
	for name := range o.agents {
		names = append(names, name)
	}
	return names
}
