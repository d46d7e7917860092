package repository

import (
	"context"

	"dashboard-platform/internal/store"
	"dashboard-platform/internal/tenancy"
)

// User is a tenant-owned user profile.
type User struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
}

type Users struct {
	*Collection[User]
}

func NewUsers(s store.Store, tc tenancy.Context, opts ...Option) *Users {
	return &Users{Collection: NewCollection[User](s, store.CollectionUsers, tc, opts...)}
}

func (u *Users) ByEmail(ctx context.Context, email string) (Record[User], error) {
	return u.FindOne(ctx, store.Where(store.Eq(store.Data("email"), email)), ReadOptions{})
}

func (u *Users) InTenant(ctx context.Context, tenantID string) ([]Record[User], error) {
	return u.Find(ctx, store.Where(store.Eq(store.FieldTenantID, tenantID)), ReadOptions{})
}
