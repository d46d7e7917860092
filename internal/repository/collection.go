package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dashboard-platform/internal/authz"
	"dashboard-platform/internal/store"
	"dashboard-platform/internal/tenancy"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is also returned for records outside the caller's tenants.
	ErrNotFound       = errors.New("repository: not found")
	ErrTenantRequired = errors.New("repository: no tenant to write to")
	ErrTenantDenied   = errors.New("repository: tenant not permitted")
	ErrConflict       = errors.New("repository: conflict")
)

// Scope narrows queries for a typed view of a collection, e.g. documents of
// one type. It runs before the tenant predicate is added and cannot remove it.
type Scope func(store.Query) store.Query

// Collection is the tenant-scoped data access base. Every read funnels
// through BuildBaseQuery and every write is stamped from the tenant context.
type Collection[T any] struct {
	store store.Store
	name  string
	tc    tenancy.Context
	scope Scope
	now   func() time.Time
	newID func() string
}

type Option func(*options)

type options struct {
	scope Scope
	now   func() time.Time
	newID func() string
}

// WithScope composes an additional predicate strategy into BuildBaseQuery.
func WithScope(s Scope) Option { return func(o *options) { o.scope = s } }

func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func WithIDs(newID func() string) Option { return func(o *options) { o.newID = newID } }

func NewCollection[T any](s store.Store, name string, tc tenancy.Context, opts ...Option) *Collection[T] {
	o := options{now: time.Now, newID: uuid.NewString}
	for _, fn := range opts {
		fn(&o)
	}
	return &Collection[T]{
		store: s,
		name:  name,
		tc:    tc,
		scope: o.scope,
		now:   o.now,
		newID: o.newID,
	}
}

// ReadOptions adjust a read. IncludeDeleted is the only way to see
// soft-deleted records.
type ReadOptions struct {
	IncludeDeleted bool
	Limit          int
	Offset         int
	Desc           bool
}

// BuildBaseQuery wraps caller filters with the collection scope, the
// soft-delete exclusion and, unconditionally and last, the tenant predicate.
func (c *Collection[T]) BuildBaseQuery(filters store.Query, ro ReadOptions) store.Query {
	q := filters
	if c.scope != nil {
		q = c.scope(q)
	}
	if !ro.IncludeDeleted {
		q = q.With(store.Ne(store.FieldState, store.StateDeleted))
	}
	return authz.ApplyTenantFilter(q, c.tc.Allowed())
}

func (c *Collection[T]) Find(ctx context.Context, filters store.Query, ro ReadOptions) ([]Record[T], error) {
	q := c.BuildBaseQuery(filters, ro)
	rows, err := c.store.Find(ctx, c.name, q, store.FindOptions{Limit: ro.Limit, Offset: ro.Offset, Desc: ro.Desc})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.name, err)
	}
	rows = c.visible(rows, ro)

	out := make([]Record[T], 0, len(rows))
	for _, r := range rows {
		rec, err := decodeRecord[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Collection[T]) FindOne(ctx context.Context, filters store.Query, ro ReadOptions) (Record[T], error) {
	ro.Limit, ro.Offset = 1, 0
	recs, err := c.Find(ctx, filters, ro)
	if err != nil {
		return Record[T]{}, err
	}
	if len(recs) == 0 {
		return Record[T]{}, ErrNotFound
	}
	return recs[0], nil
}

func (c *Collection[T]) FindByID(ctx context.Context, id string) (Record[T], error) {
	if id == "" {
		return Record[T]{}, ErrNotFound
	}
	return c.FindOne(ctx, store.Where(store.Eq(store.FieldID, id)), ReadOptions{})
}

// Create stores data under the context's active tenant.
func (c *Collection[T]) Create(ctx context.Context, data T) (Record[T], error) {
	tenantID, ok := c.tc.ActiveTenant()
	if !ok {
		return Record[T]{}, ErrTenantRequired
	}
	return c.CreateIn(ctx, tenantID, data)
}

// CreateIn stores data under tenantID, which must be one the context allows.
func (c *Collection[T]) CreateIn(ctx context.Context, tenantID string, data T) (Record[T], error) {
	if tenantID == "" {
		return Record[T]{}, ErrTenantRequired
	}
	if !c.tc.Allows(tenantID) {
		return Record[T]{}, ErrTenantDenied
	}
	body, err := encodeBody(data)
	if err != nil {
		return Record[T]{}, fmt.Errorf("create %s: %w", c.name, err)
	}
	row := store.Row{
		Meta: store.Meta{
			ID:          c.newID(),
			TenantID:    tenantID,
			Lifecycle:   store.Active(),
			CreatedDate: c.now().UTC(),
			CreatedBy:   c.tc.Actor(),
		},
		Body: body,
	}
	if err := c.store.Insert(ctx, c.name, row); err != nil {
		return Record[T]{}, c.mapErr("create", err)
	}
	return decodeRecord[T](row)
}

// Update merges patch into the record with id, resolved through
// BuildBaseQuery so ids outside the caller's tenants are ErrNotFound.
func (c *Collection[T]) Update(ctx context.Context, id string, patch map[string]any) (Record[T], error) {
	return c.apply(ctx, id, ReadOptions{}, store.Patch{Set: sanitizePatch(patch)})
}

// Delete soft-deletes the record with id.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	lc := store.DeletedBy(c.tc.Actor(), c.now().UTC())
	_, err := c.apply(ctx, id, ReadOptions{}, store.Patch{Lifecycle: &lc})
	return err
}

// Restore reverses a soft delete.
func (c *Collection[T]) Restore(ctx context.Context, id string) (Record[T], error) {
	lc := store.Active()
	return c.apply(ctx, id, ReadOptions{IncludeDeleted: true}, store.Patch{Lifecycle: &lc},
		store.Eq(store.FieldState, store.StateDeleted))
}

func (c *Collection[T]) apply(ctx context.Context, id string, ro ReadOptions, p store.Patch, extra ...store.Predicate) (Record[T], error) {
	if id == "" {
		return Record[T]{}, ErrNotFound
	}
	filters := store.Where(store.Eq(store.FieldID, id)).And(extra...)
	q := c.BuildBaseQuery(filters, ro)

	p.LastUpdated = c.now().UTC()
	p.LastUpdatedBy = c.tc.Actor()
	row, err := c.store.UpdateOne(ctx, c.name, q, p)
	if err != nil {
		return Record[T]{}, c.mapErr("update", err)
	}
	if !c.tc.Allows(row.Meta.TenantID) {
		// The store ignored the tenant predicate; refuse to surface the row.
		return Record[T]{}, fmt.Errorf("update %s: store returned row outside tenant scope", c.name)
	}
	return decodeRecord[T](row)
}

// visible re-checks tenant and lifecycle on rows the store returned.
func (c *Collection[T]) visible(rows []store.Row, ro ReadOptions) []store.Row {
	rows = authz.FilterAllowed(rows, func(r store.Row) string { return r.Meta.TenantID }, c.tc.Allowed())
	if ro.IncludeDeleted {
		return rows
	}
	out := rows[:0:0]
	for _, r := range rows {
		if !r.Meta.Lifecycle.Deleted() {
			out = append(out, r)
		}
	}
	return out
}

func (c *Collection[T]) mapErr(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%s %s: %w", op, c.name, ErrConflict)
	default:
		return fmt.Errorf("%s %s: %w", op, c.name, err)
	}
}
