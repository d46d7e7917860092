package httpapi

import (
	"errors"
	"net/http"
	"time"

	"dashboard-platform/internal/apierr"
	"dashboard-platform/internal/audit"
	"dashboard-platform/internal/auth"
	"dashboard-platform/internal/authz"
	"dashboard-platform/internal/repository"
	"dashboard-platform/internal/store"
	"dashboard-platform/internal/tenancy"
	"dashboard-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
// Every data access goes through a repository built from the request's
// tenant context.
type Handlers struct {
	Store store.Store
	Authz *authz.Authorizer
	Auth  *auth.Manager
	Deny  auth.Denylist
	Audit *audit.Service
	Now   func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// tenantContext returns the context attached by rbac.EnforceTenantScope.
func tenantContext(c *gin.Context) (tenancy.Context, bool) {
	tc, ok := tenancy.FromGin(c)
	if !ok {
		apierr.Internal(c, apierr.CodeInternal, errors.New("handler reached without tenant context"))
		return tenancy.Context{}, false
	}
	return tc, true
}

func actor(c *gin.Context, id auth.Identity) audit.Actor {
	return audit.Actor{UserID: id.UserID, Role: string(id.PlatformRole), IP: c.ClientIP()}
}

// repoError maps repository failures onto the error contract. Records outside
// the caller's tenants surface exactly like missing ones.
func repoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		apierr.Abort(c, http.StatusNotFound, apierr.CodeNotFound, "Not found")
	case errors.Is(err, repository.ErrTenantRequired):
		apierr.Abort(c, http.StatusBadRequest, apierr.CodeTenantRequired, "Tenant ID required")
	case errors.Is(err, repository.ErrTenantDenied):
		apierr.Abort(c, http.StatusForbidden, apierr.CodeTenantRequired, "Access to this tenant is not permitted")
	case errors.Is(err, repository.ErrInvalidMembership):
		apierr.Abort(c, http.StatusBadRequest, apierr.CodeBadRequest, "Invalid membership")
	case errors.Is(err, repository.ErrConflict):
		apierr.Abort(c, http.StatusConflict, apierr.CodeConflict, "Conflict")
	default:
		apierr.Internal(c, apierr.CodeInternal, err)
	}
}

// auditAdminWrite records writes a platform admin makes into a tenant.
// Audit is best-effort; failures are logged and never fail the request.
func (h Handlers) auditAdminWrite(c *gin.Context, tc tenancy.Context, tenantID, kind, id, message string) {
	if h.Audit == nil || !tc.IsPlatformAdmin() {
		return
	}
	if err := h.Audit.LogAdminWrite(c.Request.Context(), tenantID, kind, id, actor(c, tc.Identity()), message); err != nil {
		logger.FromGin(c).Warn("audit append failed", "kind", kind, "id", id, "err", err)
	}
}

func badJSON(c *gin.Context) {
	apierr.Abort(c, http.StatusBadRequest, apierr.CodeBadRequest, "Invalid JSON body")
}

// listOptions reads limit/offset/include_deleted query parameters.
func listOptions(c *gin.Context) (repository.ReadOptions, bool) {
	var q struct {
		Limit          int  `form:"limit"`
		Offset         int  `form:"offset"`
		IncludeDeleted bool `form:"include_deleted"`
	}
	if err := c.ShouldBindQuery(&q); err != nil || q.Limit < 0 || q.Offset < 0 {
		apierr.Abort(c, http.StatusBadRequest, apierr.CodeBadRequest, "Invalid paging parameters")
		return repository.ReadOptions{}, false
	}
	if q.Limit == 0 || q.Limit > 500 {
		q.Limit = 100
	}
	return repository.ReadOptions{Limit: q.Limit, Offset: q.Offset, IncludeDeleted: q.IncludeDeleted, Desc: true}, true
}
