package tool

import (
	"context"
	"sync"

	"github.com/taskmind/taskmind/engine"
)

// Registry is a thread-safe name→Tool mapping. Registration and lookup
// are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool under its own Name().
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Lookup returns the tool registered under name, if any.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name, order unspecified.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Len reports how many tools are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// FuncTool adapts a plain function into a Tool, for tests and simple
// in-process tools that don't need a dedicated type.
type FuncTool struct {
	NameValue        string
	DescriptionValue string
	RunFunc          func(ctx context.Context, input engine.ExecutionInput) (engine.ExecutionResult, error)
}

func (f *FuncTool) Name() string        { return f.NameValue }
func (f *FuncTool) Description() string { return f.DescriptionValue }
func (f *FuncTool) Run(ctx context.Context, input engine.ExecutionInput) (engine.ExecutionResult, error) {
	return f.RunFunc(ctx, input)
}

var _ Tool = (*FuncTool)(nil)
