package authz

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"dashboard-platform/internal/auth"
	"dashboard-platform/internal/store"
)

// MembershipLookup is the persistence collaborator the Authorizer reads
// from. Unknown users or tenants yield empty results, not errors.
type MembershipLookup interface {
	ActiveMemberships(ctx context.Context, userID string) ([]Membership, error)
	ActiveMembership(ctx context.Context, userID, tenantID string) (Membership, bool, error)
}

// Authorizer answers who may act on which tenant. It holds no per-request
// state and is safe for concurrent use.
type Authorizer struct {
	memberships MembershipLookup
}

func NewAuthorizer(memberships MembershipLookup) *Authorizer {
	return &Authorizer{memberships: memberships}
}

func (a *Authorizer) IsPlatformAdmin(id auth.Identity) bool {
	return id.PlatformRole == auth.PlatformRoleAdmin
}

// UserTenants returns the sorted ids of tenants where userID has an active
// membership. An empty result is meaningful: the user has no tenant access.
func (a *Authorizer) UserTenants(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	ms, err := a.memberships.ActiveMemberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user tenants: %w", err)
	}
	ids := make([]string, 0, len(ms))
	for _, m := range ms {
		if m.Active() && m.UserID == userID {
			ids = append(ids, m.TenantID)
		}
	}
	return OnlyTenants(ids...).IDs(), nil
}

func (a *Authorizer) IsTenantAdmin(ctx context.Context, userID, tenantID string) (bool, error) {
	m, ok, err := a.membership(ctx, userID, tenantID)
	if err != nil || !ok {
		return false, err
	}
	return m.Role == RoleTenantAdmin, nil
}

// HasCapability reports whether id may exercise c inside tenantID.
// Platform admins hold every capability.
func (a *Authorizer) HasCapability(ctx context.Context, id auth.Identity, tenantID string, c Capability) (bool, error) {
	if a.IsPlatformAdmin(id) {
		return true, nil
	}
	m, ok, err := a.membership(ctx, id.UserID, tenantID)
	if err != nil || !ok {
		return false, err
	}
	return m.Grants(c), nil
}

// TenantsWithCapability returns the tenants where id may exercise c.
// Platform admins get every tenant.
func (a *Authorizer) TenantsWithCapability(ctx context.Context, id auth.Identity, c Capability) (AllowedTenants, error) {
	if a.IsPlatformAdmin(id) {
		return AllTenants(), nil
	}
	if id.UserID == "" {
		return AllowedTenants{}, nil
	}
	ms, err := a.memberships.ActiveMemberships(ctx, id.UserID)
	if err != nil {
		return AllowedTenants{}, fmt.Errorf("capable tenants: %w", err)
	}
	var ids []string
	for _, m := range ms {
		if m.UserID == id.UserID && m.Grants(c) {
			ids = append(ids, m.TenantID)
		}
	}
	return OnlyTenants(ids...), nil
}

// DefaultTenant picks the tenant a user lands in: tenant_admin memberships
// first, then the earliest created membership, then the smallest tenant id.
func (a *Authorizer) DefaultTenant(ctx context.Context, userID string) (string, bool, error) {
	if userID == "" {
		return "", false, nil
	}
	ms, err := a.memberships.ActiveMemberships(ctx, userID)
	if err != nil {
		return "", false, fmt.Errorf("default tenant: %w", err)
	}
	ms = slices.DeleteFunc(slices.Clone(ms), func(m Membership) bool { return !m.Active() })
	if len(ms) == 0 {
		return "", false, nil
	}
	slices.SortFunc(ms, func(x, y Membership) int {
		xa, ya := x.Role == RoleTenantAdmin, y.Role == RoleTenantAdmin
		if xa != ya {
			if xa {
				return -1
			}
			return 1
		}
		if c := x.CreatedDate.Compare(y.CreatedDate); c != 0 {
			return c
		}
		return cmp.Compare(x.TenantID, y.TenantID)
	})
	return ms[0].TenantID, true, nil
}

func (a *Authorizer) membership(ctx context.Context, userID, tenantID string) (Membership, bool, error) {
	if userID == "" || tenantID == "" {
		return Membership{}, false, nil
	}
	m, ok, err := a.memberships.ActiveMembership(ctx, userID, tenantID)
	if err != nil {
		return Membership{}, false, fmt.Errorf("membership lookup: %w", err)
	}
	if !ok || !m.Active() || m.UserID != userID || m.TenantID != tenantID {
		return Membership{}, false, nil
	}
	return m, true, nil
}

// ApplyTenantFilter returns q restricted to allowed. q itself is never
// modified, and applying the filter twice yields the same query.
func (a *Authorizer) ApplyTenantFilter(q store.Query, allowed AllowedTenants) store.Query {
	return ApplyTenantFilter(q, allowed)
}

func ApplyTenantFilter(q store.Query, allowed AllowedTenants) store.Query {
	if allowed.All() {
		return q
	}
	return q.With(store.In(store.FieldTenantID, allowed.IDs()))
}

// ValidateResultsTenant drops every result whose tenant differs from
// expected. It backs up the query-level filter and never replaces it.
func ValidateResultsTenant[T any](results []T, tenantOf func(T) string, expected string) []T {
	out := make([]T, 0, len(results))
	for _, r := range results {
		if tenantOf(r) == expected {
			out = append(out, r)
		}
	}
	return out
}

// FilterAllowed is ValidateResultsTenant for a set of tenants.
func FilterAllowed[T any](results []T, tenantOf func(T) string, allowed AllowedTenants) []T {
	if allowed.All() {
		return results
	}
	out := make([]T, 0, len(results))
	for _, r := range results {
		if allowed.Contains(tenantOf(r)) {
			out = append(out, r)
		}
	}
	return out
}
