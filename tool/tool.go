// Package tool implements the tool contract and registry: a
// name-addressed callable side-effect with structured I/O.
package tool

import (
	"context"
	"fmt"

	"github.com/taskmind/taskmind/engine"
)

// Tool is a name-addressed callable side-effect. Implementations must
// validate their own input and return Success=false with a diagnostic for
// expected misuse (empty input, oversized input, control characters)
// rather than returning an error; unexpected failures may return an
// error, surfaced to callers as ExecutionFailure.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, input engine.ExecutionInput) (engine.ExecutionResult, error)
}

// ExecutionFailure wraps an unexpected tool error (as opposed to expected
// misuse, which a well-behaved tool reports via Success=false).
type ExecutionFailure struct {
	ToolName string
	Err      error
}

func (e *ExecutionFailure) Error() string {
	return fmt.Sprintf("tool %q execution failed: %v", e.ToolName, e.Err)
}

func (e *ExecutionFailure) Unwrap() error { return e.Err }

// NewExecutionFailure wraps err as a tool ExecutionFailure.
func NewExecutionFailure(toolName string, err error) *ExecutionFailure {
	return &ExecutionFailure{ToolName: toolName, Err: err}
}
