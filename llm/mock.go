package llm

import (
	"context"
	"sync"
)

// Mock is a test double implementing Client. Responses may be supplied as
// a fixed queue (consumed in order) or computed from a function of the
// prompt; the function takes precedence when set.
type Mock struct {
	mu        sync.Mutex
	Responses []string
	Errors    []error
	Fn        func(ctx context.Context, prompt string) (string, error)

	calls   int
	Prompts []string
}

// NewMock returns a Mock that replies with responses in order, one per call.
func NewMock(responses ...string) *Mock {
	return &Mock{Responses: responses}
}

func (m *Mock) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	defer func() { m.calls++ }()

	if m.Fn != nil {
		return m.Fn(ctx, prompt)
	}

	if m.calls < len(m.Errors) && m.Errors[m.calls] != nil {
		return "", m.Errors[m.calls]
	}
	if m.calls < len(m.Responses) {
		return m.Responses[m.calls], nil
	}
	if len(m.Responses) > 0 {
		return m.Responses[len(m.Responses)-1], nil
	}
	return "", nil
}

// CallCount reports how many times Generate was invoked.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ Client = (*Mock)(nil)
