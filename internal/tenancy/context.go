package tenancy

import (
	"context"

	"dashboard-platform/internal/auth"
	"dashboard-platform/internal/authz"

	"github.com/gin-gonic/gin"
)

// Context is the resolved access scope of one request. It is immutable,
// built fresh per request, and never cached or shared.
type Context struct {
	identity      auth.Identity
	platformAdmin bool
	allowed       authz.AllowedTenants
	active        string
	target        string
}

func (c Context) Identity() auth.Identity { return c.identity }

func (c Context) IsPlatformAdmin() bool { return c.platformAdmin }

// TenantScoped is true when queries must be restricted to Allowed.
func (c Context) TenantScoped() bool { return !c.platformAdmin }

func (c Context) Allowed() authz.AllowedTenants { return c.allowed }

func (c Context) Allows(tenantID string) bool { return c.allowed.Contains(tenantID) }

// ActiveTenant is the tenant stamped onto records created in this request.
func (c Context) ActiveTenant() (string, bool) { return c.active, c.active != "" }

// Restrict returns a copy of c limited to the tenants in to. The active
// tenant survives only if it stays allowed; otherwise the sole remaining
// tenant, if there is exactly one, becomes active.
func (c Context) Restrict(to authz.AllowedTenants) Context {
	out := c
	out.allowed = c.allowed.Intersect(to)
	if out.active != "" && out.allowed.Contains(out.active) {
		return out
	}
	out.active = ""
	if ids := out.allowed.IDs(); len(ids) == 1 {
		out.active = ids[0]
	}
	return out
}

// Target is the tenant explicitly named by the request, or "".
func (c Context) Target() string { return c.target }

// Actor is the user id recorded in audit fields.
func (c Context) Actor() string { return c.identity.UserID }

type ctxKey struct{}

const ginContextKey = "tenant_context"

func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

func From(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// Attach stores tc on the request context and the gin context, plus the
// tenant_scoped/allowed_tenants keys handlers and the request logger read.
func Attach(c *gin.Context, tc Context) {
	c.Request = c.Request.WithContext(WithContext(c.Request.Context(), tc))
	c.Set(ginContextKey, tc)
	c.Set("tenant_scoped", tc.TenantScoped())
	c.Set("allowed_tenants", tc.Allowed())
}

func FromGin(c *gin.Context) (Context, bool) {
	if v, ok := c.Get(ginContextKey); ok {
		if tc, ok := v.(Context); ok {
			return tc, true
		}
	}
	return From(c.Request.Context())
}
