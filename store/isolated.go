package store

import (
	"context"

	"github.com/taskmind/taskmind/engine"
)

// Isolated is a Store bound to a single synthetic workflow id, used to
// prevent cross-test and cross-run interference. Close tears down the
// backing namespace unless Preserve is set, e.g. for post-mortem
// debugging of a failed test run.
type Isolated struct {
	Store      Store
	WorkflowID engine.WorkflowID
	Preserve   bool
}

// NewIsolated wraps backend with a freshly generated workflow id.
func NewIsolated(backend Store) *Isolated {
	return &Isolated{Store: backend, WorkflowID: engine.NewWorkflowID()}
}

// Close removes the isolated namespace from backend unless Preserve is
// true, in which case the data is left behind for inspection.
func (i *Isolated) Close(ctx context.Context) error {
	if i.Preserve {
		return nil
	}
	return i.Store.DeleteWorkflow(ctx, i.WorkflowID)
}
