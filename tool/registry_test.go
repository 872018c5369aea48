package tool

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmind/taskmind/engine"
)

func echoTool() *FuncTool {
	return &FuncTool{
		NameValue:        "echo",
		DescriptionValue: "echoes input back",
		RunFunc: func(ctx context.Context, input engine.ExecutionInput) (engine.ExecutionResult, error) {
			if strings.TrimSpace(input.Content) == "" {
				return engine.ExecutionResult{Success: false, Output: "empty input"}, nil
			}
			return engine.ExecutionResult{Success: true, Output: input.Content}, nil
		},
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())

	tl, ok := r.Lookup("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", tl.Name())

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistryRejectsExpectedMisuseWithoutError(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())
	tl, _ := r.Lookup("echo")

	result, err := tl.Run(context.Background(), engine.ExecutionInput{Content: "  "})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestRegistryLenAndNames(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Len())
	r.Register(echoTool())
	assert.Equal(t, 1, r.Len())
	assert.Contains(t, r.Names(), "echo")
}
