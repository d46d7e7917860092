package repository

import (
	"context"
	"time"

	"dashboard-platform/internal/store"
	"dashboard-platform/internal/tenancy"
)

type ExecutionStatus string

const (
	ExecutionQueued    ExecutionStatus = "queued"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionSucceeded ExecutionStatus = "succeeded"
	ExecutionFailed    ExecutionStatus = "failed"
)

// Execution records one run of a workflow. Runs always live in the
// workflow's tenant.
type Execution struct {
	WorkflowID string          `json:"workflowId"`
	Status     ExecutionStatus `json:"status"`
	StartedAt  *time.Time      `json:"startedAt,omitempty"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type Executions struct {
	*Collection[Execution]
}

func NewExecutions(s store.Store, tc tenancy.Context, opts ...Option) *Executions {
	return &Executions{Collection: NewCollection[Execution](s, store.CollectionExecutions, tc, opts...)}
}

// Start queues an execution of wf in the workflow's own tenant.
func (e *Executions) Start(ctx context.Context, wf Record[Workflow]) (Record[Execution], error) {
	return e.CreateIn(ctx, wf.Meta.TenantID, Execution{
		WorkflowID: wf.Meta.ID,
		Status:     ExecutionQueued,
	})
}

func (e *Executions) ForWorkflow(ctx context.Context, workflowID string) ([]Record[Execution], error) {
	return e.Find(ctx, store.Where(store.Eq(store.Data("workflowId"), workflowID)), ReadOptions{Desc: true})
}

func (e *Executions) InTenant(ctx context.Context, tenantID string, ro ReadOptions) ([]Record[Execution], error) {
	return e.Find(ctx, store.Where(store.Eq(store.FieldTenantID, tenantID)), ro)
}

// SetStatus moves an execution along; terminal states stamp FinishedAt.
func (e *Executions) SetStatus(ctx context.Context, id string, status ExecutionStatus, errMsg string) (Record[Execution], error) {
	now := e.now().UTC()
	patch := map[string]any{"status": status}
	switch status {
	case ExecutionRunning:
		patch["startedAt"] = now
	case ExecutionSucceeded, ExecutionFailed:
		patch["finishedAt"] = now
		if errMsg != "" {
			patch["error"] = errMsg
		}
	}
	return e.Update(ctx, id, patch)
}
