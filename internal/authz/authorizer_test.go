package authz

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"testing"
	"time"

	"dashboard-platform/internal/auth"
	"dashboard-platform/internal/store"
)

// fakeLookup stores every membership, active or not, and filters like the
// real directory does.
type fakeLookup struct {
	all []Membership
	err error
}

func (f *fakeLookup) ActiveMemberships(ctx context.Context, userID string) ([]Membership, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []Membership
	for _, m := range f.all {
		if m.UserID == userID && m.Active() {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeLookup) ActiveMembership(ctx context.Context, userID, tenantID string) (Membership, bool, error) {
	if f.err != nil {
		return Membership{}, false, f.err
	}
	for _, m := range f.all {
		if m.UserID == userID && m.TenantID == tenantID && m.Active() {
			return m, true, nil
		}
	}
	return Membership{}, false, nil
}

var t0 = time.Unix(1700000000, 0).UTC()

func member(user, tenant string, role Role, status MembershipStatus, age int) Membership {
	return Membership{
		ID:          user + "@" + tenant,
		UserID:      user,
		TenantID:    tenant,
		Role:        role,
		Status:      status,
		CreatedDate: t0.Add(time.Duration(age) * time.Hour),
	}
}

func TestIsPlatformAdmin(t *testing.T) {
	a := NewAuthorizer(&fakeLookup{})
	if !a.IsPlatformAdmin(auth.Identity{UserID: "u", PlatformRole: auth.PlatformRoleAdmin}) {
		t.Fatalf("expected platform admin")
	}
	for _, role := range []auth.PlatformRole{"", auth.PlatformRoleNone, "PLATFORM_ADMIN", "super_admin"} {
		if a.IsPlatformAdmin(auth.Identity{UserID: "u", PlatformRole: role}) {
			t.Fatalf("role %q must not be platform admin", role)
		}
	}
}

func TestUserTenantsOnlyActive(t *testing.T) {
	a := NewAuthorizer(&fakeLookup{all: []Membership{
		member("u1", "t2", RoleUser, StatusActive, 0),
		member("u1", "t1", RoleViewer, StatusActive, 1),
		member("u1", "t3", RoleUser, StatusSuspended, 2),
		member("u2", "t4", RoleUser, StatusActive, 0),
	}})

	got, err := a.UserTenants(context.Background(), "u1")
	if err != nil {
		t.Fatalf("user tenants: %v", err)
	}
	if !slices.Equal(got, []string{"t1", "t2"}) {
		t.Fatalf("expected [t1 t2], got %v", got)
	}

	none, err := a.UserTenants(context.Background(), "ghost")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty result for unknown user, got %v, %v", none, err)
	}
}

func TestUserTenantsMatchesActiveSetProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	roles := []Role{RoleTenantAdmin, RoleUser, RoleViewer, RoleCustom}
	statuses := []MembershipStatus{StatusActive, StatusSuspended}

	for iter := 0; iter < 200; iter++ {
		var all []Membership
		want := map[string]bool{}
		n := rng.Intn(8)
		for i := 0; i < n; i++ {
			user := fmt.Sprintf("u%d", rng.Intn(3))
			tenant := fmt.Sprintf("t%d", rng.Intn(5))
			m := member(user, tenant, roles[rng.Intn(len(roles))], statuses[rng.Intn(len(statuses))], i)
			all = append(all, m)
			if user == "u0" && m.Active() {
				want[tenant] = true
			}
		}

		got, err := NewAuthorizer(&fakeLookup{all: all}).UserTenants(context.Background(), "u0")
		if err != nil {
			t.Fatalf("user tenants: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("iteration %d: expected %v, got %v", iter, want, got)
		}
		for _, id := range got {
			if !want[id] {
				t.Fatalf("iteration %d: unexpected tenant %s", iter, id)
			}
		}
	}
}

func TestIsTenantAdmin(t *testing.T) {
	a := NewAuthorizer(&fakeLookup{all: []Membership{
		member("admin", "t1", RoleTenantAdmin, StatusActive, 0),
		member("viewer", "t1", RoleViewer, StatusActive, 0),
		member("suspended", "t1", RoleTenantAdmin, StatusSuspended, 0),
	}})
	ctx := context.Background()

	cases := []struct {
		user, tenant string
		want         bool
	}{
		{"admin", "t1", true},
		{"admin", "t2", false},
		{"viewer", "t1", false},
		{"suspended", "t1", false},
		{"ghost", "t1", false},
		{"admin", "", false},
	}
	for _, tc := range cases {
		got, err := a.IsTenantAdmin(ctx, tc.user, tc.tenant)
		if err != nil {
			t.Fatalf("is tenant admin: %v", err)
		}
		if got != tc.want {
			t.Fatalf("IsTenantAdmin(%s, %s) = %v, want %v", tc.user, tc.tenant, got, tc.want)
		}
	}
}

func TestLookupErrorsPropagate(t *testing.T) {
	a := NewAuthorizer(&fakeLookup{err: errors.New("db down")})
	if _, err := a.UserTenants(context.Background(), "u"); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := a.IsTenantAdmin(context.Background(), "u", "t"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDefaultTenant(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		ms   []Membership
		want string
	}{
		{"none", nil, ""},
		{"admin preferred over older", []Membership{
			member("u", "old", RoleUser, StatusActive, 0),
			member("u", "adm", RoleTenantAdmin, StatusActive, 5),
		}, "adm"},
		{"earliest created", []Membership{
			member("u", "b", RoleUser, StatusActive, 3),
			member("u", "a", RoleViewer, StatusActive, 1),
		}, "a"},
		{"tie broken by tenant id", []Membership{
			member("u", "z", RoleUser, StatusActive, 1),
			member("u", "m", RoleUser, StatusActive, 1),
		}, "m"},
		{"suspended ignored", []Membership{
			member("u", "adm", RoleTenantAdmin, StatusSuspended, 0),
			member("u", "x", RoleUser, StatusActive, 9),
		}, "x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := NewAuthorizer(&fakeLookup{all: tc.ms}).DefaultTenant(ctx, "u")
			if err != nil {
				t.Fatalf("default tenant: %v", err)
			}
			if got != tc.want || ok != (tc.want != "") {
				t.Fatalf("expected %q, got %q (%v)", tc.want, got, ok)
			}
		})
	}
}

func TestHasCapability(t *testing.T) {
	custom := member("c", "t1", RoleCustom, StatusActive, 0)
	custom.Permissions = []string{"reports:export", string(CapDocumentsRead)}
	a := NewAuthorizer(&fakeLookup{all: []Membership{
		custom,
		member("v", "t1", RoleViewer, StatusActive, 0),
		member("u", "t1", RoleUser, StatusActive, 0),
		member("adm", "t1", RoleTenantAdmin, StatusActive, 0),
	}})
	ctx := context.Background()

	cases := []struct {
		id   auth.Identity
		cap  Capability
		want bool
	}{
		{auth.Identity{UserID: "c"}, "reports:export", true},
		{auth.Identity{UserID: "c"}, CapDocumentsRead, true},
		{auth.Identity{UserID: "c"}, CapDocumentsWrite, false},
		{auth.Identity{UserID: "v"}, CapDocumentsRead, true},
		{auth.Identity{UserID: "v"}, CapDocumentsWrite, false},
		{auth.Identity{UserID: "u"}, CapDocumentsWrite, true},
		{auth.Identity{UserID: "u"}, CapMembersManage, false},
		{auth.Identity{UserID: "adm"}, CapMembersManage, true},
		{auth.Identity{UserID: "root", PlatformRole: auth.PlatformRoleAdmin}, CapMembersManage, true},
		{auth.Identity{UserID: "stranger"}, CapDocumentsRead, false},
	}
	for _, tc := range cases {
		got, err := a.HasCapability(ctx, tc.id, "t1", tc.cap)
		if err != nil {
			t.Fatalf("has capability: %v", err)
		}
		if got != tc.want {
			t.Fatalf("HasCapability(%s, %s) = %v, want %v", tc.id.UserID, tc.cap, got, tc.want)
		}
	}
}

func TestTenantsWithCapability(t *testing.T) {
	none := member("u", "t3", RoleCustom, StatusActive, 0)
	a := NewAuthorizer(&fakeLookup{all: []Membership{
		member("u", "t1", RoleUser, StatusActive, 0),
		member("u", "t2", RoleViewer, StatusActive, 0),
		none,
		member("u", "t4", RoleUser, StatusSuspended, 0),
	}})
	ctx := context.Background()

	write, err := a.TenantsWithCapability(ctx, auth.Identity{UserID: "u"}, CapDocumentsWrite)
	if err != nil || !slices.Equal(write.IDs(), []string{"t1"}) {
		t.Fatalf("write tenants = %v, %v", write.IDs(), err)
	}
	read, _ := a.TenantsWithCapability(ctx, auth.Identity{UserID: "u"}, CapDocumentsRead)
	if !slices.Equal(read.IDs(), []string{"t1", "t2"}) {
		t.Fatalf("read tenants = %v", read.IDs())
	}
	root, _ := a.TenantsWithCapability(ctx, auth.Identity{UserID: "root", PlatformRole: auth.PlatformRoleAdmin}, CapMembersManage)
	if !root.All() {
		t.Fatalf("platform admin should hold every tenant")
	}
	if got, _ := a.TenantsWithCapability(ctx, auth.Identity{}, CapDocumentsRead); !got.Empty() {
		t.Fatalf("anonymous identity got %v", got.IDs())
	}

	broken := NewAuthorizer(&fakeLookup{err: errors.New("db down")})
	if _, err := broken.TenantsWithCapability(ctx, auth.Identity{UserID: "u"}, CapDocumentsRead); err == nil {
		t.Fatalf("expected lookup error")
	}
}

func TestAllowedTenantsIntersect(t *testing.T) {
	a := OnlyTenants("t1", "t2", "t3")
	if got := a.Intersect(OnlyTenants("t2", "t3", "t9")); !slices.Equal(got.IDs(), []string{"t2", "t3"}) {
		t.Fatalf("intersect = %v", got.IDs())
	}
	if got := a.Intersect(AllTenants()); !slices.Equal(got.IDs(), a.IDs()) {
		t.Fatalf("intersect with all = %v", got.IDs())
	}
	if got := AllTenants().Intersect(AllTenants()); !got.All() {
		t.Fatalf("all with all should stay all")
	}
	if got := a.Intersect(AllowedTenants{}); !got.Empty() {
		t.Fatalf("intersect with nothing = %v", got.IDs())
	}
}

func TestApplyTenantFilter(t *testing.T) {
	base := store.Where(store.Eq(store.Data("type"), "invoice"))
	before := base.String()

	if got := ApplyTenantFilter(base, AllTenants()); !got.Equal(base) {
		t.Fatalf("all tenants must leave the query unchanged, got %s", got)
	}

	allowed := OnlyTenants("t2", "t1")
	once := ApplyTenantFilter(base, allowed)
	twice := ApplyTenantFilter(once, allowed)
	if !once.Equal(twice) {
		t.Fatalf("expected idempotent filter: %s vs %s", once, twice)
	}
	if base.String() != before {
		t.Fatalf("input query mutated: %s", base)
	}
	if !once.Has(store.In(store.FieldTenantID, []string{"t1", "t2"})) {
		t.Fatalf("tenant predicate missing: %s", once)
	}
}

func TestApplyTenantFilterEmptySetMatchesNothing(t *testing.T) {
	q := ApplyTenantFilter(store.Query{}, AllowedTenants{})
	r := store.Row{Meta: store.Meta{ID: "x", TenantID: "t1", Lifecycle: store.Active()}}
	if ok, _ := q.Matches(r); ok {
		t.Fatalf("empty allowed set must match nothing")
	}
}

func TestValidateResultsTenant(t *testing.T) {
	type rec struct{ id, tenant string }
	in := []rec{{"a", "t1"}, {"b", "t2"}, {"c", "t1"}}
	got := ValidateResultsTenant(in, func(r rec) string { return r.tenant }, "t1")
	if len(got) != 2 || got[0].id != "a" || got[1].id != "c" {
		t.Fatalf("unexpected results: %+v", got)
	}
	if len(in) != 3 {
		t.Fatalf("input modified")
	}

	kept := FilterAllowed(in, func(r rec) string { return r.tenant }, OnlyTenants("t2"))
	if len(kept) != 1 || kept[0].id != "b" {
		t.Fatalf("unexpected filtered results: %+v", kept)
	}
}

func TestAllowedTenantsJSON(t *testing.T) {
	cases := []struct {
		a    AllowedTenants
		want string
	}{
		{AllTenants(), `"all"`},
		{OnlyTenants("b", "a", "b"), `["a","b"]`},
		{AllowedTenants{}, `[]`},
	}
	for _, tc := range cases {
		b, err := tc.a.MarshalJSON()
		if err != nil || string(b) != tc.want {
			t.Fatalf("expected %s, got %s (%v)", tc.want, b, err)
		}
	}
}
