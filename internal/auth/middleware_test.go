package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dashboard-platform/internal/apierr"

	"github.com/gin-gonic/gin"
)

type failingDenylist struct{}

func (failingDenylist) Revoke(context.Context, string, time.Time) error { return nil }
func (failingDenylist) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func serve(t *testing.T, mw gin.HandlerFunc, header string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reached := false
	r := gin.New()
	r.GET("/x", mw, func(c *gin.Context) {
		id, ok := FromGin(c)
		if !ok || id.UserID == "" {
			t.Fatalf("identity not attached")
		}
		if _, ok := IdentityFrom(c.Request.Context()); !ok {
			t.Fatalf("identity not on request context")
		}
		reached = true
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w, reached
}

func decodeCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body apierr.Body
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body.Code
}

func TestAuthenticate(t *testing.T) {
	m := newTestManager(t)
	valid, _ := m.Issue(time.Now(), IssueRequest{UserID: "u1"})

	cases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"no header", "", http.StatusUnauthorized, apierr.CodeNotAuthenticated},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, apierr.CodeNoToken},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, apierr.CodeNoToken},
		{"bad token", "Bearer nope", http.StatusUnauthorized, apierr.CodeInvalidToken},
		{"valid", "Bearer " + valid, http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, reached := serve(t, Authenticate(m, nil), tc.header)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			if tc.code == "" {
				if !reached {
					t.Fatalf("handler not reached")
				}
				return
			}
			if reached {
				t.Fatalf("handler must not run after rejection")
			}
			if got := decodeCode(t, w); got != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, got)
			}
		})
	}
}

func TestAuthenticateRejectsRevokedToken(t *testing.T) {
	m := newTestManager(t)
	now := time.Now()
	tok, _ := m.Issue(now, IssueRequest{UserID: "u1"})
	id, _ := m.Verify(tok, now)

	deny := NewMemoryDenylist()
	if err := deny.Revoke(context.Background(), id.TokenID, id.ExpiresAt); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	w, reached := serve(t, Authenticate(m, deny), "Bearer "+tok)
	if w.Code != http.StatusUnauthorized || reached {
		t.Fatalf("expected 401 for revoked token, got %d", w.Code)
	}
	if got := decodeCode(t, w); got != apierr.CodeInvalidToken {
		t.Fatalf("expected INVALID_TOKEN, got %s", got)
	}
}

func TestAuthenticateDenylistFailureIs500(t *testing.T) {
	m := newTestManager(t)
	tok, _ := m.Issue(time.Now(), IssueRequest{UserID: "u1"})

	w, reached := serve(t, Authenticate(m, failingDenylist{}), "Bearer "+tok)
	if w.Code != http.StatusInternalServerError || reached {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if got := decodeCode(t, w); got != apierr.CodeAuth {
		t.Fatalf("expected AUTH_ERROR, got %s", got)
	}
}

func TestMemoryDenylistExpires(t *testing.T) {
	d := NewMemoryDenylist()
	now := time.Unix(1700000000, 0)
	d.now = func() time.Time { return now }

	_ = d.Revoke(context.Background(), "jti", now.Add(time.Minute))
	if ok, _ := d.IsRevoked(context.Background(), "jti"); !ok {
		t.Fatalf("expected revoked")
	}
	now = now.Add(2 * time.Minute)
	if ok, _ := d.IsRevoked(context.Background(), "jti"); ok {
		t.Fatalf("expected entry to lapse with the token")
	}
}
