package repository

import (
	"context"
	"encoding/json"

	"dashboard-platform/internal/store"
	"dashboard-platform/internal/tenancy"
)

type Workflow struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Enabled     bool            `json:"enabled"`
	Definition  json.RawMessage `json:"definition,omitempty"`
}

type Workflows struct {
	*Collection[Workflow]
}

func NewWorkflows(s store.Store, tc tenancy.Context, opts ...Option) *Workflows {
	return &Workflows{Collection: NewCollection[Workflow](s, store.CollectionWorkflows, tc, opts...)}
}

func (w *Workflows) Enabled(ctx context.Context) ([]Record[Workflow], error) {
	return w.Find(ctx, store.Where(store.Eq(store.Data("enabled"), true)), ReadOptions{})
}
