package httpapi

import (
	"errors"
	"net/http"
	"time"

	"dashboard-platform/internal/apierr"
	"dashboard-platform/internal/audit"
	"dashboard-platform/internal/auth"
	"dashboard-platform/internal/store"
	"dashboard-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Logout revokes the presented token until it would have expired.
func (h Handlers) Logout(c *gin.Context) {
	id, ok := auth.FromGin(c)
	if !ok {
		apierr.Abort(c, http.StatusUnauthorized, apierr.CodeNotAuthenticated, "Authentication required")
		return
	}
	if h.Deny == nil {
		apierr.Internal(c, apierr.CodeAuth, errors.New("denylist not configured"))
		return
	}
	if err := h.Deny.Revoke(c.Request.Context(), id.TokenID, id.ExpiresAt); err != nil {
		apierr.Internal(c, apierr.CodeAuth, err)
		return
	}
	if h.Audit != nil {
		if err := h.Audit.LogToken(c.Request.Context(), audit.EventTokenRevoked, auditTenant(id), id.TokenID, id.UserID, actor(c, id)); err != nil {
			logger.FromGin(c).Warn("audit append failed", "err", err)
		}
	}
	c.Status(http.StatusNoContent)
}

type issueTokenRequest struct {
	UserID       string `json:"userId" binding:"required"`
	Email        string `json:"email"`
	PlatformRole string `json:"platformRole"`
	TenantID     string `json:"tenantId"`
	TenantSlug   string `json:"tenantSlug"`
	TTLSeconds   int    `json:"ttlSeconds"`
}

// IssueToken mints a tenant-scoped access token for a service account.
// Platform admins only; routes enforce it. Minted tokens never carry
// platform admin.
func (h Handlers) IssueToken(c *gin.Context) {
	if h.Auth == nil {
		apierr.Internal(c, apierr.CodeAuth, errors.New("auth not configured"))
		return
	}
	caller, _ := auth.FromGin(c)

	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	role := auth.PlatformRole(req.PlatformRole)
	switch role {
	case "":
		role = auth.PlatformRoleNone
	case auth.PlatformRoleNone:
	case auth.PlatformRoleAdmin:
		apierr.Abort(c, http.StatusForbidden, apierr.CodeForbidden, "Minted tokens cannot carry platform admin")
		return
	default:
		apierr.Abort(c, http.StatusBadRequest, apierr.CodeBadRequest, "Unknown platform role")
		return
	}

	now := h.now()
	token, err := h.Auth.Issue(now, auth.IssueRequest{
		UserID:       req.UserID,
		Email:        req.Email,
		PlatformRole: role,
		TenantID:     req.TenantID,
		TenantSlug:   req.TenantSlug,
		TTL:          time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		apierr.Internal(c, apierr.CodeAuth, err)
		return
	}
	issued, err := h.Auth.Verify(token, now)
	if err != nil {
		apierr.Internal(c, apierr.CodeAuth, err)
		return
	}
	if h.Audit != nil {
		if err := h.Audit.LogToken(c.Request.Context(), audit.EventTokenIssued, auditTenant(issued), issued.TokenID, issued.UserID, actor(c, caller)); err != nil {
			logger.FromGin(c).Warn("audit append failed", "err", err)
		}
	}
	c.JSON(http.StatusCreated, gin.H{
		"accessToken": token,
		"tokenType":   "Bearer",
		"expiresAt":   issued.ExpiresAt,
	})
}

func auditTenant(id auth.Identity) string {
	if id.TenantID != "" {
		return id.TenantID
	}
	return store.SystemTenant
}
