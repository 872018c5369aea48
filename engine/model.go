package engine

import (
	"strings"

	"github.com/google/uuid"
)

// WorkflowID opaquely scopes all persisted state for one logical run.
type WorkflowID string

// NewWorkflowID generates an opaque workflow id for callers that don't
// already have one of their own.
func NewWorkflowID() WorkflowID {
	return WorkflowID(uuid.NewString())
}

// Reserved template placeholder names. Every other placeholder resolves
// against completed task outputs by task name.
const (
	PlaceholderUserRequest = "user_request"
	PlaceholderPrevOutput  = "prev_output"
)

// TaskDefinition is one node of a Plan. It is immutable once created by
// the planner.
type TaskDefinition struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	PromptTemplate string `json:"promptTemplate"`
}

// Plan is the ordered sequence of tasks produced by the planner for one
// workflow. It is saved exactly once per workflow and reloaded on resume.
type Plan struct {
	Tasks []TaskDefinition `json:"tasks"`
}

// TaskNames returns the plan's task names in plan order.
func (p Plan) TaskNames() []string {
	names := make([]string, len(p.Tasks))
	for i, t := range p.Tasks {
		names[i] = t.Name
	}
	return names
}

// ExecutionInput is the immutable input handed to an agent or tool
// invocation.
type ExecutionInput struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ExecutionResult is the immutable output of an agent or tool invocation.
type ExecutionResult struct {
	Success  bool                   `json:"success"`
	Output   string                 `json:"output"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToolCall is the structured convention an agent's text output uses to
// request a tool side-effect. See agent.ParseToolCall.
type ToolCall struct {
	Tool      string `json:"tool"`
	Arguments string `json:"arguments"`
}

// Truncate shortens s to at most n runes, appending an ellipsis when it
// had to cut. Used for bounding memory-log entries and log field sizes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
