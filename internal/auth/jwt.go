package auth

import (
	"errors"
	"fmt"
	"time"

	"dashboard-platform/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingCredential   = errors.New("auth: missing credential")
	ErrMalformedCredential = errors.New("auth: malformed authorization header")
	ErrInvalidCredential   = errors.New("auth: invalid credential")
)

// Manager signs and verifies HS256 access tokens.
type Manager struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
	leeway    time.Duration
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Manager{
		secret:    []byte(cfg.JWTSecret),
		issuer:    cfg.JWTIssuer,
		audience:  cfg.JWTAudience,
		accessTTL: ttl,
		leeway:    30 * time.Second,
	}, nil
}

// IssueRequest describes the subject of a new access token.
type IssueRequest struct {
	UserID       string
	Email        string
	PlatformRole PlatformRole
	TenantID     string
	TenantSlug   string
	TTL          time.Duration
}

func (m *Manager) Issue(now time.Time, req IssueRequest) (string, error) {
	if req.UserID == "" {
		return "", errors.New("auth: user id is required")
	}
	role := req.PlatformRole
	if role == "" {
		role = PlatformRoleNone
	}
	ttl := req.TTL
	if ttl <= 0 || ttl > m.accessTTL {
		ttl = m.accessTTL
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.UserID,
			Issuer:    m.issuer,
			Audience:  audienceOrNil(m.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		UserID:       req.UserID,
		Email:        req.Email,
		PlatformRole: role,
		TenantID:     req.TenantID,
		TenantSlug:   req.TenantSlug,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secret)
}

// Verify checks signature, expiry, issuer and audience, and returns the
// identity carried by the claims. No policy decisions are made here.
func (m *Manager) Verify(raw string, now time.Time) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrMissingCredential
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(m.leeway),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	var claims Claims
	_, err := jwt.NewParser(opts...).ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	if claims.UserID == "" {
		return Identity{}, fmt.Errorf("%w: user_id missing", ErrInvalidCredential)
	}
	return identityFromClaims(claims), nil
}

func audienceOrNil(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}
