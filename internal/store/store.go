package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: conflict")
)

// Store is the persistence collaborator shared by every tenant and request.
// It applies exactly the Query it is given; tenant isolation is the caller's
// responsibility (see internal/repository).
type Store interface {
	Find(ctx context.Context, collection string, q Query, opts FindOptions) ([]Row, error)
	Insert(ctx context.Context, collection string, row Row) error
	// UpdateOne applies p to the first row matching q as a single atomic write
	// and returns the updated row, or ErrNotFound.
	UpdateOne(ctx context.Context, collection string, q Query, p Patch) (Row, error)
}

// FindOptions controls ordering and paging. Rows are ordered by created_date
// then id, ascending unless Desc is set.
type FindOptions struct {
	Limit  int
	Offset int
	Desc   bool
}

// Patch describes an update. Set is shallow-merged into the row body.
type Patch struct {
	Set           map[string]any
	Lifecycle     *Lifecycle
	LastUpdated   time.Time
	LastUpdatedBy string
}
