package auth

import (
	"errors"
	"testing"
	"time"

	"dashboard-platform/internal/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:      "secret",
		JWTIssuer:      "issuer",
		JWTAudience:    "aud",
		AccessTokenTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestIssueAndVerify(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()

	tok, err := m.Issue(now, IssueRequest{UserID: "user-1", Email: "u@example.com", TenantID: "t1", TenantSlug: "acme"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	id, err := m.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != "user-1" || id.Email != "u@example.com" || id.TenantID != "t1" || id.TenantSlug != "acme" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if id.PlatformRole != PlatformRoleNone {
		t.Fatalf("expected default platform role none, got %q", id.PlatformRole)
	}
	if id.TokenID == "" || !id.ExpiresAt.Equal(now.Add(15*time.Minute)) {
		t.Fatalf("expected token metadata, got %+v", id)
	}
}

func TestVerifyRejects(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()
	tok, _ := m.Issue(now, IssueRequest{UserID: "u", PlatformRole: PlatformRoleAdmin})

	other, _ := NewManager(config.AuthConfig{JWTSecret: "other", JWTIssuer: "issuer", JWTAudience: "aud"})
	foreign, _ := other.Issue(now, IssueRequest{UserID: "u"})

	wrongAud, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "issuer", JWTAudience: "elsewhere"})
	misdirected, _ := wrongAud.Issue(now, IssueRequest{UserID: "u"})

	cases := []struct {
		name string
		raw  string
		at   time.Time
		want error
	}{
		{"empty", "", now, ErrMissingCredential},
		{"garbage", "not.a.jwt", now, ErrInvalidCredential},
		{"expired", tok, now.Add(time.Hour), ErrInvalidCredential},
		{"wrong secret", foreign, now, ErrInvalidCredential},
		{"wrong audience", misdirected, now, ErrInvalidCredential},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := m.Verify(tc.raw, tc.at); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestVerifyToleratesClockSkew(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()
	tok, _ := m.Issue(now, IssueRequest{UserID: "u"})
	if _, err := m.Verify(tok, now.Add(15*time.Minute+10*time.Second)); err != nil {
		t.Fatalf("expected leeway to accept token, got %v", err)
	}
}

func TestIssueCapsTTL(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()
	tok, _ := m.Issue(now, IssueRequest{UserID: "u", TTL: 48 * time.Hour})
	id, err := m.Verify(tok, now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !id.ExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("expected ttl capped at access ttl, got %v", id.ExpiresAt)
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager(config.AuthConfig{}); err == nil {
		t.Fatalf("expected error without secret")
	}
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		token  string
		err    error
	}{
		{"", "", ErrMissingCredential},
		{"   ", "", ErrMissingCredential},
		{"Bearer abc", "abc", nil},
		{"bearer abc", "abc", nil},
		{"Bearer ", "", ErrMalformedCredential},
		{"Bearer", "", ErrMalformedCredential},
		{"Basic dXNlcjpwYXNz", "", ErrMalformedCredential},
		{"Bearer a b", "", ErrMalformedCredential},
	}
	for _, tc := range cases {
		tok, err := ExtractBearer(tc.header)
		if !errors.Is(err, tc.err) || tok != tc.token {
			t.Fatalf("ExtractBearer(%q) = %q, %v; want %q, %v", tc.header, tok, err, tc.token, tc.err)
		}
	}
}
