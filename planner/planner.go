// Package planner implements the planning stage: given a user request,
// it prompts a text-generation client for a JSON task array and parses
// the result into an engine.Plan, tolerating prose or markdown fences
// the model wraps the JSON in despite instructions not to.
package planner

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/taskmind/taskmind/engine"
	"github.com/taskmind/taskmind/llm"
)

const promptPreamble = `You are a planning assistant. Decompose the user's request into an ordered list of tasks.

Respond with ONLY a JSON array of objects, nothing else — no prose, no markdown fences. Each object must have exactly these fields:
  "name": a short unique task identifier
  "description": what the task accomplishes
  "promptTemplate": the prompt to run for this task; reference other tasks' outputs with {{taskName}}, the original request with {{user_request}}, and the immediately preceding task's output with {{prev_output}}

User request:
`

// Planner turns a user request into an engine.Plan via a text-generation
// client.
type Planner struct {
	client llm.Client
}

// New returns a Planner backed by client.
func New(client llm.Client) *Planner {
	return &Planner{client: client}
}

// Plan prompts the client and parses its response into an engine.Plan.
func (p *Planner) Plan(ctx context.Context, userRequest string) (engine.Plan, error) {
	prompt := promptPreamble + userRequest

	raw, err := p.client.Generate(ctx, prompt)
	if err != nil {
		return engine.Plan{}, NewFailure(raw, err)
	}

	tasks, ok := extractTasks(raw)
	if !ok {
		return engine.Plan{}, NewFailure(raw, nil)
	}

	return engine.Plan{Tasks: tasks}, nil
}

// extractTasks slices the substring between the first '[' and the last
// ']' in raw and parses it as a JSON array of task definitions, tolerating
// surrounding prose or markdown fences the model may have added despite
// instructions not to.
func extractTasks(raw string) ([]engine.TaskDefinition, bool) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return nil, false
	}

	var tasks []engine.TaskDefinition
	if err := json.Unmarshal([]byte(raw[start:end+1]), &tasks); err != nil {
		return nil, false
	}
	if tasks == nil {
		return nil, false
	}

	return tasks, true
}

// Failure reports that planning failed, either because the client errored
// or because its response could not be parsed into a task array. The raw
// model output is preserved for diagnosis.
type Failure struct {
	RawOutput string
	Err       error // nil when the failure is a parse failure, not a client error
}

func (e *Failure) Error() string {
	if e.Err != nil {
		return "planner: client failure: " + e.Err.Error()
	}
	return "planner: could not parse a task array from model output: " + engine.Truncate(e.RawOutput, 200)
}

func (e *Failure) Unwrap() error { return e.Err }

// NewFailure wraps rawOutput and an optional underlying client error as a
// Failure. err is nil for parse failures.
func NewFailure(rawOutput string, err error) *Failure {
	return &Failure{RawOutput: rawOutput, Err: err}
}
