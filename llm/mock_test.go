package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockRepliesInOrderThenRepeatsLast(t *testing.T) {
	m := NewMock("first", "second")

	out, err := m.Generate(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	out, err = m.Generate(context.Background(), "p2")
	require.NoError(t, err)
	assert.Equal(t, "second", out)

	out, err = m.Generate(context.Background(), "p3")
	require.NoError(t, err)
	assert.Equal(t, "second", out, "calls beyond the queue repeat the last response")

	assert.Equal(t, 3, m.CallCount())
	assert.Equal(t, []string{"p1", "p2", "p3"}, m.Prompts)
}

func TestMockReturnsQueuedErrorsByCallIndex(t *testing.T) {
	boom := errors.New("rate limit exceeded")
	m := &Mock{Errors: []error{nil, boom}, Responses: []string{"ok"}}

	out, err := m.Generate(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	_, err = m.Generate(context.Background(), "p2")
	require.ErrorIs(t, err, boom)
}

func TestMockFnTakesPrecedenceOverQueues(t *testing.T) {
	m := &Mock{
		Responses: []string{"ignored"},
		Fn: func(ctx context.Context, prompt string) (string, error) {
			return "computed-for-" + prompt, nil
		},
	}

	out, err := m.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "computed-for-x", out)
}

func TestMockWithNoResponsesReturnsEmptyString(t *testing.T) {
	m := &Mock{}
	out, err := m.Generate(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}
