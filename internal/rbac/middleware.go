package rbac

import (
	"context"
	"errors"
	"net/http"

	"dashboard-platform/internal/apierr"
	"dashboard-platform/internal/auth"
	"dashboard-platform/internal/authz"
	"dashboard-platform/internal/tenancy"
	"dashboard-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Authorizer is what the tenant middleware needs from authz.Authorizer.
type Authorizer interface {
	tenancy.Resolver
	IsTenantAdmin(ctx context.Context, userID, tenantID string) (bool, error)
	TenantsWithCapability(ctx context.Context, id auth.Identity, c authz.Capability) (authz.AllowedTenants, error)
}

// RequirePlatformAdmin must run after auth.Authenticate.
func RequirePlatformAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.FromGin(c)
		if !ok {
			apierr.Abort(c, http.StatusUnauthorized, apierr.CodeNotAuthenticated, "Authentication required")
			return
		}
		if id.PlatformRole != auth.PlatformRoleAdmin {
			apierr.Abort(c, http.StatusForbidden, apierr.CodePlatformAdminRequired, "Platform admin access required")
			return
		}
		c.Next()
	}
}

// EnforceTenantScope builds the tenant context for the caller and attaches
// it to the request. Non-admins without memberships, and requests naming a
// tenant the caller cannot access, never reach the handler.
func EnforceTenantScope(a Authorizer, bodyLimit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.FromGin(c)
		if !ok {
			apierr.Abort(c, http.StatusUnauthorized, apierr.CodeNotAuthenticated, "Authentication required")
			return
		}

		target, err := tenancy.TargetTenant(c, bodyLimit)
		switch {
		case errors.Is(err, tenancy.ErrBodyTooLarge):
			apierr.Abort(c, http.StatusRequestEntityTooLarge, apierr.CodeTenantValidation, "Request body too large")
			return
		case errors.Is(err, tenancy.ErrInvalidTarget):
			apierr.Abort(c, http.StatusBadRequest, apierr.CodeTenantValidation, "tenantId must be a string")
			return
		case err != nil:
			apierr.Internal(c, apierr.CodeTenantValidation, err)
			return
		}

		tc, err := tenancy.Build(c.Request.Context(), a, id, target)
		switch {
		case errors.Is(err, tenancy.ErrNoTenants):
			logger.FromGin(c).Warn("tenant scope rejected", "user_id", id.UserID, "reason", "no_tenants")
			apierr.Abort(c, http.StatusForbidden, apierr.CodeTenantRequired, "No tenant access")
			return
		case errors.Is(err, tenancy.ErrTenantForbidden):
			logger.FromGin(c).Warn("tenant scope rejected", "user_id", id.UserID, "tenant_id", target, "reason", "forbidden_tenant")
			apierr.Abort(c, http.StatusForbidden, apierr.CodeTenantRequired, "Access to this tenant is not permitted")
			return
		case err != nil:
			apierr.Internal(c, apierr.CodeTenantValidation, err)
			return
		}

		tenancy.Attach(c, tc)
		logger.Annotate(c, "tenant_scoped", tc.TenantScoped())
		c.Next()
	}
}

// RequireTenantAdmin requires an explicitly named tenant the caller
// administers. Platform admins pass.
func RequireTenantAdmin(a Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.FromGin(c)
		if !ok {
			apierr.Abort(c, http.StatusUnauthorized, apierr.CodeNotAuthenticated, "Authentication required")
			return
		}
		target, err := tenancy.TargetTenant(c, 0)
		if err != nil || target == "" {
			apierr.Abort(c, http.StatusBadRequest, apierr.CodeTenantRequired, "Tenant ID required")
			return
		}
		if a.IsPlatformAdmin(id) {
			c.Next()
			return
		}
		ok, err = a.IsTenantAdmin(c.Request.Context(), id.UserID, target)
		if err != nil {
			apierr.Internal(c, apierr.CodeInternal, err)
			return
		}
		if !ok {
			apierr.Abort(c, http.StatusForbidden, apierr.CodeTenantAdminRequired, "Forbidden")
			return
		}
		c.Next()
	}
}

// RequireCapability narrows the request's tenant context to the tenants
// where the caller holds want, so the handler never touches a tenant whose
// membership lacks it. A request naming such a tenant, or a caller holding
// want nowhere, is rejected. It must run after EnforceTenantScope.
func RequireCapability(a Authorizer, want authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, ok := tenancy.FromGin(c)
		if !ok {
			apierr.Internal(c, apierr.CodeInternal, errors.New("capability check without tenant context"))
			return
		}
		if tc.IsPlatformAdmin() {
			c.Next()
			return
		}
		capable, err := a.TenantsWithCapability(c.Request.Context(), tc.Identity(), want)
		if err != nil {
			apierr.Internal(c, apierr.CodeInternal, err)
			return
		}
		target := tc.Target()
		narrowed := tc.Restrict(capable)
		if (target != "" && !capable.Contains(target)) || narrowed.Allowed().Empty() {
			logger.FromGin(c).Warn("capability denied", "user_id", tc.Identity().UserID, "capability", string(want), "tenant_id", target)
			apierr.Abort(c, http.StatusForbidden, apierr.CodeForbidden, "Forbidden")
			return
		}
		tenancy.Attach(c, narrowed)
		c.Next()
	}
}
