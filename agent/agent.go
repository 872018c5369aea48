// Package agent implements the stateful agent: it composes memory and a
// prompt, calls the text-generation client, optionally dispatches a
// single tool call, and maintains an append-only memory log.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/taskmind/taskmind/engine"
	"github.com/taskmind/taskmind/llm"
	"github.com/taskmind/taskmind/store"
	"github.com/taskmind/taskmind/tool"
)

const defaultMemoryLimit = 10

// Config constructs an Agent.
type Config struct {
	Name           string
	Description    string
	Client         llm.Client
	PromptTemplate string // optional; rendered verbatim in the prompt's "Prompt Template:" section
	Tools          *tool.Registry
	MemoryLimit    int // bounds prompt-context inclusion only, not the durable log; 0 -> defaultMemoryLimit

	Store      store.Store
	WorkflowID engine.WorkflowID

	Logger    engine.Logger
	Telemetry engine.Telemetry
}

// Agent is a named, stateful executor wrapping one text-generation client
// and optional tool access. Its in-memory list is an eventually-consistent
// cache of the durable log's tail; the store is the source of truth.
type Agent struct {
	name           string
	description    string
	client         llm.Client
	promptTemplate string
	tools          *tool.Registry
	memoryLimit    int

	store      store.Store
	workflowID engine.WorkflowID

	logger    engine.Logger
	telemetry engine.Telemetry

	mu     sync.RWMutex
	memory []string
}

// New constructs an Agent and rehydrates its memory from the store.
// execute calls on the returned Agent must be serialized by the caller —
// an Agent is never invoked concurrently with itself.
func New(ctx context.Context, cfg Config) (*Agent, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, engine.NewArgumentError("agent.New", "Name", "must not be blank")
	}
	if cfg.Client == nil {
		return nil, engine.NewArgumentError("agent.New", "Client", "must not be nil")
	}

	memoryLimit := cfg.MemoryLimit
	if memoryLimit <= 0 {
		memoryLimit = defaultMemoryLimit
	}

	a := &Agent{
		name:           cfg.Name,
		description:    cfg.Description,
		client:         cfg.Client,
		promptTemplate: cfg.PromptTemplate,
		tools:          cfg.Tools,
		memoryLimit:    memoryLimit,
		store:          cfg.Store,
		workflowID:     cfg.WorkflowID,
		logger:         engine.ResolveLogger(cfg.Logger, "agent/"+cfg.Name),
		telemetry:      engine.ResolveTelemetry(cfg.Telemetry),
	}

	if a.store != nil {
		entries, err := a.store.LoadMemory(ctx, a.workflowID, a.name)
		if err != nil {
			a.logger.Warn("agent: failed to rehydrate memory, starting empty", map[string]interface{}{
				"agent": a.name,
				"error": err.Error(),
			})
		} else {
			a.memory = entries
		}
	}

	return a, nil
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.name }

// Memory returns a snapshot of the agent's in-memory log tail.
func (a *Agent) Memory() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.memory))
	copy(out, a.memory)
	return out
}

// Execute produces an ExecutionResult for input, optionally via a single
// tool call. It appends one memory entry when the model's text is returned
// or a tool runs; an unknown tool name or an error appends none.
func (a *Agent) Execute(ctx context.Context, input engine.ExecutionInput) (result engine.ExecutionResult, err error) {
	if strings.TrimSpace(input.Content) == "" {
		return engine.ExecutionResult{}, engine.NewArgumentError("agent.Execute", "input.Content", "must not be blank")
	}

	spanCtx, span := a.telemetry.StartSpan(ctx, "agent.execution")
	span.SetAttribute("agent", a.name)
	span.SetAttribute("type", "unified")
	defer span.End()

	start := time.Now()
	defer func() {
		success := err == nil && result.Success
		a.telemetry.RecordMetric("agent.execution.duration", time.Since(start).Seconds(), map[string]string{
			"agent": a.name,
			"type":  "unified",
		})
		a.telemetry.RecordMetric("agent.execution.count", 1, map[string]string{
			"agent":   a.name,
			"success": fmt.Sprintf("%t", success),
		})
		if !success {
			a.telemetry.RecordMetric("agent.execution.errors", 1, map[string]string{"agent": a.name})
		}
	}()

	prompt := a.buildPrompt(input)

	text, genErr := a.client.Generate(spanCtx, prompt)
	if genErr != nil {
		span.RecordError(genErr)
		a.telemetry.RecordMetric("errors.count", 1, map[string]string{
			"component":     "agent",
			"error_type":    fmt.Sprintf("%T", genErr),
			"error_message": engine.Truncate(genErr.Error(), 100),
		})
		if pf, ok := genErr.(*llm.ProviderFailure); ok {
			return engine.ExecutionResult{}, pf
		}
		return engine.ExecutionResult{}, llm.NewProviderFailure("", genErr)
	}

	if a.tools != nil {
		if call, ok := ParseToolCall(text); ok {
			return a.dispatchTool(spanCtx, call)
		}
	}

	a.appendMemory(spanCtx, "LLM_OUTPUT: "+engine.Truncate(text, 300))

	return engine.ExecutionResult{Success: true, Output: text}, nil
}

func (a *Agent) dispatchTool(ctx context.Context, call engine.ToolCall) (result engine.ExecutionResult, err error) {
	start := time.Now()
	defer func() {
		success := err == nil && result.Success
		a.telemetry.RecordMetric("tool.execution.duration", time.Since(start).Seconds(), map[string]string{
			"tool": call.Tool,
		})
		a.telemetry.RecordMetric("tool.execution.count", 1, map[string]string{
			"tool":    call.Tool,
			"success": fmt.Sprintf("%t", success),
		})
		if !success {
			a.telemetry.RecordMetric("tool.execution.errors", 1, map[string]string{"tool": call.Tool})
		}
	}()

	t, ok := a.tools.Lookup(call.Tool)
	if !ok {
		return engine.ExecutionResult{
			Success: false,
			Output:  "[ERROR: unknown tool " + call.Tool + "]",
		}, nil
	}

	toolResult, runErr := t.Run(ctx, engine.ExecutionInput{Content: call.Arguments})
	if runErr != nil {
		return engine.ExecutionResult{}, tool.NewExecutionFailure(call.Tool, runErr)
	}

	a.appendMemory(ctx, fmt.Sprintf("TOOL_CALL %s arg=%s", call.Tool, engine.Truncate(call.Arguments, 120)))

	return engine.ExecutionResult{Success: toolResult.Success, Output: toolResult.Output, Metadata: toolResult.Metadata}, nil
}

// appendMemory persists entry to the store first, then appends it to the
// in-memory tail under an exclusive lock. Persistence failure is logged
// and non-fatal: the agent still returns success to its caller.
func (a *Agent) appendMemory(ctx context.Context, entry string) {
	if a.store != nil {
		if err := a.store.AddMemory(ctx, a.workflowID, a.name, entry); err != nil {
			a.logger.Warn("agent: memory persistence failed, continuing", map[string]interface{}{
				"agent": a.name,
				"error": err.Error(),
			})
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.memory = append(a.memory, entry)
}

func (a *Agent) buildPrompt(input engine.ExecutionInput) string {
	a.mu.RLock()
	memory := make([]string, len(a.memory))
	copy(memory, a.memory)
	a.mu.RUnlock()

	var b strings.Builder
	b.WriteString("System: ")
	b.WriteString(a.description)
	b.WriteString("\n")

	if len(memory) > 0 {
		recent := memory
		if len(recent) > a.memoryLimit {
			recent = recent[len(recent)-a.memoryLimit:]
		}
		b.WriteString("Memory (most recent first):\n")
		for i := len(recent) - 1; i >= 0; i-- {
			b.WriteString("- ")
			b.WriteString(recent[i])
			b.WriteString("\n")
		}
	}

	if a.tools != nil && a.tools.Len() > 0 {
		b.WriteString("Available tools: ")
		b.WriteString(strings.Join(a.tools.Names(), ", "))
		b.WriteString("\n")
		b.WriteString(`You can call tools using JSON format: {"tool": "tool_name", "arguments": "arguments here"}. Only use tools when helpful. Otherwise just answer directly.`)
		b.WriteString("\n")
	}

	b.WriteString("User Input:\n")
	b.WriteString(input.Content)
	b.WriteString("\n")

	if a.promptTemplate != "" {
		b.WriteString("Prompt Template:\n")
		b.WriteString(a.promptTemplate)
		b.WriteString("\n")
	}

	b.WriteString("Produce the best output now.")

	return b.String()
}

// ParseToolCall classifies response as a tool call iff the entire trimmed
// text is a standalone JSON object with non-empty string fields "tool"
// and "arguments". Partial or embedded JSON, missing fields, non-string
// fields, or empty strings all disqualify it. Additional keys are ignored.
func ParseToolCall(response string) (engine.ToolCall, bool) {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" || trimmed[0] != '{' {
		return engine.ToolCall{}, false
	}

	var candidate struct {
		Tool      *string `json:"tool"`
		Arguments *string `json:"arguments"`
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	if err := dec.Decode(&candidate); err != nil {
		return engine.ToolCall{}, false
	}
	// Reject trailing content after the JSON value (disqualifies "{...} trailing text").
	if dec.InputOffset() != int64(len(trimmed)) {
		return engine.ToolCall{}, false
	}

	if candidate.Tool == nil || candidate.Arguments == nil {
		return engine.ToolCall{}, false
	}
	if *candidate.Tool == "" || *candidate.Arguments == "" {
		return engine.ToolCall{}, false
	}

	return engine.ToolCall{Tool: *candidate.Tool, Arguments: *candidate.Arguments}, true
}
