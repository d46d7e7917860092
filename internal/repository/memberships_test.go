package repository

import (
	"context"
	"errors"
	"testing"

	"dashboard-platform/internal/auth"
	"dashboard-platform/internal/authz"
	"dashboard-platform/internal/store"
)

func TestMemberships_OneActivePerUserAndTenant(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	ms := NewMemberships(s, adminScope(t, s))

	first, err := ms.Add(ctx, "t1", "u", authz.RoleUser, nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := ms.Add(ctx, "t1", "u", authz.RoleViewer, nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := ms.Add(ctx, "t2", "u", authz.RoleViewer, nil); err != nil {
		t.Fatalf("other tenant: %v", err)
	}

	// A suspended membership frees the slot; reactivating it then conflicts.
	if _, err := ms.Suspend(ctx, "t1", first.Meta.ID); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if _, err := ms.Add(ctx, "t1", "u", authz.RoleViewer, nil); err != nil {
		t.Fatalf("add after suspend: %v", err)
	}
	if _, err := ms.Activate(ctx, "t1", first.Meta.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on activate, got %v", err)
	}
}

func TestMemberships_Validation(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	ms := NewMemberships(s, adminScope(t, s))

	if _, err := ms.Add(ctx, "t1", "", authz.RoleUser, nil); !errors.Is(err, ErrInvalidMembership) {
		t.Fatalf("empty user: expected ErrInvalidMembership, got %v", err)
	}
	if _, err := ms.Add(ctx, "t1", "u", authz.Role("owner"), nil); !errors.Is(err, ErrInvalidMembership) {
		t.Fatalf("unknown role: expected ErrInvalidMembership, got %v", err)
	}
	rec, err := ms.Add(ctx, "t1", "u", authz.RoleViewer, []string{"documents:write"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(rec.Data.Permissions) != 0 {
		t.Fatalf("permissions only apply to custom roles, got %v", rec.Data.Permissions)
	}
}

func TestMemberships_TenantAdminManagesOwnTenantOnly(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	addMember(t, s, "t1", "boss", authz.RoleTenantAdmin)
	other := addMember(t, s, "t2", "x", authz.RoleUser)

	ms := NewMemberships(s, scopeFor(t, s, auth.Identity{UserID: "boss"}, "t1"))

	added, err := ms.Add(ctx, "t1", "u", authz.RoleViewer, nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := ms.Add(ctx, "t2", "u", authz.RoleViewer, nil); !errors.Is(err, ErrTenantDenied) {
		t.Fatalf("expected ErrTenantDenied, got %v", err)
	}
	if _, err := ms.SetRole(ctx, "t2", other.Meta.ID, authz.RoleTenantAdmin, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign membership: expected ErrNotFound, got %v", err)
	}
	// An id from one tenant addressed through another is not found either.
	if _, err := ms.SetRole(ctx, "t1", other.Meta.ID, authz.RoleTenantAdmin, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("mismatched tenant: expected ErrNotFound, got %v", err)
	}

	upd, err := ms.SetRole(ctx, "t1", added.Meta.ID, authz.RoleCustom, []string{"documents:read", "reports:export"})
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	m := ToMembership(upd)
	if !m.Grants("reports:export") || m.Grants(authz.CapDocumentsWrite) {
		t.Fatalf("unexpected custom grants %+v", m)
	}

	list, err := ms.InTenant(ctx, "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 members of t1, got %d", len(list))
	}
}

func TestMembershipDirectory_ActiveOnly(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	ms := NewMemberships(s, adminScope(t, s))

	a := addMember(t, s, "t1", "u", authz.RoleUser)
	b := addMember(t, s, "t2", "u", authz.RoleTenantAdmin)
	c := addMember(t, s, "t3", "u", authz.RoleViewer)
	addMember(t, s, "t4", "someone-else", authz.RoleUser)

	if _, err := ms.Suspend(ctx, "t2", b.Meta.ID); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if err := ms.Remove(ctx, "t3", c.Meta.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	dir := NewMembershipDirectory(s)
	got, err := dir.ActiveMemberships(ctx, "u")
	if err != nil {
		t.Fatalf("active memberships: %v", err)
	}
	if len(got) != 1 || got[0].ID != a.Meta.ID || got[0].TenantID != "t1" {
		t.Fatalf("expected only the t1 membership, got %+v", got)
	}

	if _, ok, err := dir.ActiveMembership(ctx, "u", "t2"); err != nil || ok {
		t.Fatalf("suspended membership returned: ok=%v err=%v", ok, err)
	}
	m, ok, err := dir.ActiveMembership(ctx, "u", "t1")
	if err != nil || !ok || m.Role != authz.RoleUser {
		t.Fatalf("expected active user membership, got %+v ok=%v err=%v", m, ok, err)
	}

	a2 := authz.NewAuthorizer(dir)
	tenants, err := a2.UserTenants(ctx, "u")
	if err != nil || len(tenants) != 1 || tenants[0] != "t1" {
		t.Fatalf("user tenants = %v, %v", tenants, err)
	}
}
