package store

import (
	"context"
	"sync"

	"github.com/taskmind/taskmind/engine"
)

// MemoryStore is an in-process Store implementation. It is used directly
// by tests and as the backend for isolated stores created without Redis
// configured.
type MemoryStore struct {
	mu      sync.RWMutex
	plans   map[engine.WorkflowID]engine.Plan
	outputs map[engine.WorkflowID][]TaskOutput
	memory  map[engine.WorkflowID]map[string][]string
	logger  engine.Logger
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore(logger engine.Logger) *MemoryStore {
	return &MemoryStore{
		plans:   make(map[engine.WorkflowID]engine.Plan),
		outputs: make(map[engine.WorkflowID][]TaskOutput),
		memory:  make(map[engine.WorkflowID]map[string][]string),
		logger:  engine.ResolveLogger(logger, "engine/store"),
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) AddMemory(ctx context.Context, workflowID engine.WorkflowID, agentName, entry string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.memory[workflowID] == nil {
		m.memory[workflowID] = make(map[string][]string)
	}
	m.memory[workflowID][agentName] = append(m.memory[workflowID][agentName], entry)
	return nil
}

func (m *MemoryStore) LoadMemory(ctx context.Context, workflowID engine.WorkflowID, agentName string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.memory[workflowID][agentName]
	out := make([]string, len(entries))
	copy(out, entries)
	return out, nil
}

func (m *MemoryStore) SavePlan(ctx context.Context, workflowID engine.WorkflowID, plan engine.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[workflowID] = plan
	return nil
}

func (m *MemoryStore) LoadPlan(ctx context.Context, workflowID engine.WorkflowID) (*engine.Plan, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	plan, ok := m.plans[workflowID]
	if !ok {
		return nil, false, nil
	}
	cp := plan
	cp.Tasks = append([]engine.TaskDefinition(nil), plan.Tasks...)
	return &cp, true, nil
}

func (m *MemoryStore) SaveTaskOutput(ctx context.Context, workflowID engine.WorkflowID, taskName, output string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.outputs[workflowID]
	for i, o := range existing {
		if o.TaskName == taskName {
			existing[i].Output = output
			return nil
		}
	}
	m.outputs[workflowID] = append(existing, TaskOutput{TaskName: taskName, Output: output})
	return nil
}

func (m *MemoryStore) LoadTaskOutputs(ctx context.Context, workflowID engine.WorkflowID) ([]TaskOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TaskOutput, len(m.outputs[workflowID]))
	copy(out, m.outputs[workflowID])
	return out, nil
}

func (m *MemoryStore) DeleteWorkflow(ctx context.Context, workflowID engine.WorkflowID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.plans, workflowID)
	delete(m.outputs, workflowID)
	delete(m.memory, workflowID)
	return nil
}
