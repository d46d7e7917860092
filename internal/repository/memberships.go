package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"dashboard-platform/internal/authz"
	"dashboard-platform/internal/store"
	"dashboard-platform/internal/tenancy"
)

var ErrInvalidMembership = errors.New("repository: invalid membership")

type MembershipData struct {
	UserID      string                 `json:"userId"`
	Role        authz.Role             `json:"role"`
	Status      authz.MembershipStatus `json:"status"`
	Permissions []string               `json:"permissions,omitempty"`
}

// ToMembership converts a stored record to the Authorizer's read model.
func ToMembership(rec Record[MembershipData]) authz.Membership {
	return authz.Membership{
		ID:          rec.Meta.ID,
		UserID:      rec.Data.UserID,
		TenantID:    rec.Meta.TenantID,
		Role:        rec.Data.Role,
		Status:      rec.Data.Status,
		Permissions: slices.Clone(rec.Data.Permissions),
		CreatedDate: rec.Meta.CreatedDate,
	}
}

// Memberships administers memberships inside the caller's tenants.
type Memberships struct {
	*Collection[MembershipData]
}

func NewMemberships(s store.Store, tc tenancy.Context, opts ...Option) *Memberships {
	return &Memberships{Collection: NewCollection[MembershipData](s, store.CollectionMemberships, tc, opts...)}
}

// Add creates an active membership. A second active membership for the same
// user and tenant is ErrConflict.
func (m *Memberships) Add(ctx context.Context, tenantID, userID string, role authz.Role, perms []string) (Record[MembershipData], error) {
	if userID == "" || !role.Valid() {
		return Record[MembershipData]{}, ErrInvalidMembership
	}
	if role != authz.RoleCustom {
		perms = nil
	}
	return m.CreateIn(ctx, tenantID, MembershipData{
		UserID:      userID,
		Role:        role,
		Status:      authz.StatusActive,
		Permissions: perms,
	})
}

func (m *Memberships) InTenant(ctx context.Context, tenantID string) ([]Record[MembershipData], error) {
	return m.Find(ctx, store.Where(store.Eq(store.FieldTenantID, tenantID)), ReadOptions{})
}

// Get resolves a membership by id within tenantID.
func (m *Memberships) Get(ctx context.Context, tenantID, id string) (Record[MembershipData], error) {
	return m.FindOne(ctx, store.Where(
		store.Eq(store.FieldID, id),
		store.Eq(store.FieldTenantID, tenantID),
	), ReadOptions{})
}

func (m *Memberships) SetRole(ctx context.Context, tenantID, id string, role authz.Role, perms []string) (Record[MembershipData], error) {
	if !role.Valid() {
		return Record[MembershipData]{}, ErrInvalidMembership
	}
	if role != authz.RoleCustom {
		perms = []string{}
	}
	return m.updateIn(ctx, tenantID, id, map[string]any{"role": role, "permissions": perms})
}

func (m *Memberships) Suspend(ctx context.Context, tenantID, id string) (Record[MembershipData], error) {
	return m.updateIn(ctx, tenantID, id, map[string]any{"status": authz.StatusSuspended})
}

// Activate reactivates a suspended membership; ErrConflict if the user has
// since been given another active membership in the tenant.
func (m *Memberships) Activate(ctx context.Context, tenantID, id string) (Record[MembershipData], error) {
	return m.updateIn(ctx, tenantID, id, map[string]any{"status": authz.StatusActive})
}

func (m *Memberships) Remove(ctx context.Context, tenantID, id string) error {
	if _, err := m.Get(ctx, tenantID, id); err != nil {
		return err
	}
	return m.Delete(ctx, id)
}

func (m *Memberships) updateIn(ctx context.Context, tenantID, id string, patch map[string]any) (Record[MembershipData], error) {
	if _, err := m.Get(ctx, tenantID, id); err != nil {
		return Record[MembershipData]{}, err
	}
	return m.Update(ctx, id, patch)
}

// MembershipDirectory is the read path the Authorizer resolves scope from.
// It necessarily reads across tenants, so it exposes only the two lookups
// keyed by user and never returns anything but active memberships.
type MembershipDirectory struct {
	store store.Store
}

func NewMembershipDirectory(s store.Store) *MembershipDirectory {
	return &MembershipDirectory{store: s}
}

var _ authz.MembershipLookup = (*MembershipDirectory)(nil)

func (d *MembershipDirectory) ActiveMemberships(ctx context.Context, userID string) ([]authz.Membership, error) {
	if userID == "" {
		return nil, nil
	}
	return d.lookup(ctx, activeMembershipQuery(userID), 0)
}

func (d *MembershipDirectory) ActiveMembership(ctx context.Context, userID, tenantID string) (authz.Membership, bool, error) {
	if userID == "" || tenantID == "" {
		return authz.Membership{}, false, nil
	}
	ms, err := d.lookup(ctx, activeMembershipQuery(userID).And(store.Eq(store.FieldTenantID, tenantID)), 1)
	if err != nil || len(ms) == 0 {
		return authz.Membership{}, false, err
	}
	return ms[0], true, nil
}

func activeMembershipQuery(userID string) store.Query {
	return store.Where(
		store.Eq(store.Data("userId"), userID),
		store.Eq(store.Data("status"), store.MembershipStatusActive),
		store.Ne(store.FieldState, store.StateDeleted),
	)
}

func (d *MembershipDirectory) lookup(ctx context.Context, q store.Query, limit int) ([]authz.Membership, error) {
	rows, err := d.store.Find(ctx, store.CollectionMemberships, q, store.FindOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("membership lookup: %w", err)
	}
	out := make([]authz.Membership, 0, len(rows))
	for _, r := range rows {
		rec, err := decodeRecord[MembershipData](r)
		if err != nil {
			return nil, err
		}
		if rec.Meta.Lifecycle.Deleted() || rec.Data.Status != authz.StatusActive {
			continue
		}
		out = append(out, ToMembership(rec))
	}
	return out, nil
}
