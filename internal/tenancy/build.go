package tenancy

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"dashboard-platform/internal/auth"
	"dashboard-platform/internal/authz"
)

var (
	// ErrNoTenants: a non-admin identity without any active membership.
	ErrNoTenants = errors.New("tenancy: identity has no active tenant memberships")
	// ErrTenantForbidden: the request named a tenant outside the allowed set.
	ErrTenantForbidden = errors.New("tenancy: target tenant not permitted")
)

// Resolver is the slice of the Authorizer that Build needs.
type Resolver interface {
	IsPlatformAdmin(id auth.Identity) bool
	UserTenants(ctx context.Context, userID string) ([]string, error)
	DefaultTenant(ctx context.Context, userID string) (string, bool, error)
}

// Build resolves the access scope of id. target is the tenant explicitly
// named by the request, or "".
//
// Platform admins get every tenant without any membership lookup. Everyone
// else gets exactly their active memberships; none at all is ErrNoTenants,
// and a target outside the set is ErrTenantForbidden.
func Build(ctx context.Context, r Resolver, id auth.Identity, target string) (Context, error) {
	if r.IsPlatformAdmin(id) {
		active := target
		if active == "" {
			active = id.TenantID
		}
		return Context{
			identity:      id,
			platformAdmin: true,
			allowed:       authz.AllTenants(),
			active:        active,
			target:        target,
		}, nil
	}

	tenants, err := r.UserTenants(ctx, id.UserID)
	if err != nil {
		return Context{}, fmt.Errorf("build tenant context: %w", err)
	}
	if len(tenants) == 0 {
		return Context{}, ErrNoTenants
	}
	allowed := authz.OnlyTenants(tenants...)

	if target != "" && !allowed.Contains(target) {
		return Context{}, ErrTenantForbidden
	}

	active, err := activeTenant(ctx, r, id, target, allowed)
	if err != nil {
		return Context{}, err
	}
	return Context{
		identity: id,
		allowed:  allowed,
		active:   active,
		target:   target,
	}, nil
}

func activeTenant(ctx context.Context, r Resolver, id auth.Identity, target string, allowed authz.AllowedTenants) (string, error) {
	if target != "" {
		return target, nil
	}
	if id.TenantID != "" && allowed.Contains(id.TenantID) {
		return id.TenantID, nil
	}
	if ids := allowed.IDs(); len(ids) == 1 {
		return ids[0], nil
	}
	def, ok, err := r.DefaultTenant(ctx, id.UserID)
	if err != nil {
		return "", fmt.Errorf("build tenant context: %w", err)
	}
	if ok && slices.Contains(allowed.IDs(), def) {
		return def, nil
	}
	return "", nil
}
