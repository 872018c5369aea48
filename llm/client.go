// Package llm defines the text-generation client contract: a single
// generate(prompt) -> text call. Concrete backends are external
// collaborators; this package only carries the contract, a
// provider-failure error type, and a test double. No streaming, no
// tool-calling protocol at this layer — tool calls are a text
// convention, see agent.Agent.
package llm

import "context"

// Client is the text-generation backend contract.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderFailure reports that the text-generation backend failed. It is
// retryable via retry.Engine when the underlying error is transient;
// otherwise it surfaces to the caller of agent.Agent or planner.Planner.
type ProviderFailure struct {
	Provider string
	Err      error
}

func (e *ProviderFailure) Error() string {
	if e.Provider != "" {
		return "llm(" + e.Provider + "): " + e.Err.Error()
	}
	return "llm: " + e.Err.Error()
}

func (e *ProviderFailure) Unwrap() error { return e.Err }

// NewProviderFailure wraps err as a ProviderFailure.
func NewProviderFailure(provider string, err error) *ProviderFailure {
	return &ProviderFailure{Provider: provider, Err: err}
}
