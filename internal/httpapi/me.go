package httpapi

import (
	"net/http"

	"dashboard-platform/internal/apierr"
	"dashboard-platform/internal/authz"

	"github.com/gin-gonic/gin"
)

type meResponse struct {
	UserID          string               `json:"userId"`
	Email           string               `json:"email"`
	PlatformRole    string               `json:"platformRole"`
	IsPlatformAdmin bool                 `json:"isPlatformAdmin"`
	TenantScoped    bool                 `json:"tenantScoped"`
	AllowedTenants  authz.AllowedTenants `json:"allowedTenants"`
	ActiveTenant    string               `json:"activeTenant,omitempty"`
	DefaultTenant   string               `json:"defaultTenant,omitempty"`
}

// Me describes the caller's identity and resolved tenant scope.
func (h Handlers) Me(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}
	id := tc.Identity()
	resp := meResponse{
		UserID:          id.UserID,
		Email:           id.Email,
		PlatformRole:    string(id.PlatformRole),
		IsPlatformAdmin: tc.IsPlatformAdmin(),
		TenantScoped:    tc.TenantScoped(),
		AllowedTenants:  tc.Allowed(),
	}
	resp.ActiveTenant, _ = tc.ActiveTenant()

	if h.Authz != nil {
		def, found, err := h.Authz.DefaultTenant(c.Request.Context(), id.UserID)
		if err != nil {
			apierr.Internal(c, apierr.CodeInternal, err)
			return
		}
		if found {
			resp.DefaultTenant = def
		}
	}
	c.JSON(http.StatusOK, resp)
}
