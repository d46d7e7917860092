package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PlatformRole is the cross-tenant role carried by a credential.
type PlatformRole string

const (
	PlatformRoleNone  PlatformRole = "none"
	PlatformRoleAdmin PlatformRole = "platform_admin"
)

// Claims are the only supported JWT claims shape for this service.
// TenantID/TenantSlug are a convenience hint; tenant access is always
// re-derived from memberships on every request.
type Claims struct {
	jwt.RegisteredClaims

	UserID       string       `json:"user_id"`
	Email        string       `json:"email"`
	PlatformRole PlatformRole `json:"platform_role"`
	TenantID     string       `json:"tenant_id,omitempty"`
	TenantSlug   string       `json:"tenant_slug,omitempty"`
}

// Identity is a verified actor. It lives for one request and is never
// persisted.
type Identity struct {
	UserID       string
	Email        string
	PlatformRole PlatformRole
	TenantID     string
	TenantSlug   string

	// Structural token metadata, used for revocation.
	TokenID   string
	ExpiresAt time.Time
}

func identityFromClaims(c Claims) Identity {
	id := Identity{
		UserID:       c.UserID,
		Email:        c.Email,
		PlatformRole: c.PlatformRole,
		TenantID:     c.TenantID,
		TenantSlug:   c.TenantSlug,
		TokenID:      c.ID,
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}
