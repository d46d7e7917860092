package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"dashboard-platform/internal/apierr"
	"dashboard-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Verifier is the token verification contract Authenticate depends on.
type Verifier interface {
	Verify(raw string, now time.Time) (Identity, error)
}

// Authenticate verifies the bearer credential and attaches the identity to
// the request. It makes no authorization decisions; see internal/rbac.
// deny may be nil when revocation is not configured.
func Authenticate(v Verifier, deny Denylist) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if p := recover(); p != nil {
				logger.FromGin(c).Error("authenticate panicked", "path", c.FullPath(), "panic", fmt.Sprint(p))
				apierr.Abort(c, http.StatusInternalServerError, apierr.CodeAuth, "Authentication failed")
			}
		}()

		raw, err := ExtractBearer(c.GetHeader(authorizationHeader))
		switch {
		case errors.Is(err, ErrMissingCredential):
			apierr.Abort(c, http.StatusUnauthorized, apierr.CodeNotAuthenticated, "Authentication required")
			return
		case err != nil:
			apierr.Abort(c, http.StatusUnauthorized, apierr.CodeNoToken, "No token provided")
			return
		}

		id, err := v.Verify(raw, time.Now())
		if err != nil {
			logger.FromGin(c).Debug("token rejected", "reason", errorClass(err))
			apierr.Abort(c, http.StatusUnauthorized, apierr.CodeInvalidToken, "Invalid or expired token")
			return
		}

		if deny != nil {
			revoked, err := deny.IsRevoked(c.Request.Context(), id.TokenID)
			if err != nil {
				logger.FromGin(c).Error("denylist lookup failed", "path", c.FullPath(), "user_id", id.UserID, "err", err)
				apierr.Abort(c, http.StatusInternalServerError, apierr.CodeAuth, "Authentication failed")
				return
			}
			if revoked {
				apierr.Abort(c, http.StatusUnauthorized, apierr.CodeInvalidToken, "Invalid or expired token")
				return
			}
		}

		SetIdentity(c, id)
		logger.Annotate(c, "user_id", id.UserID)
		c.Next()
	}
}

// errorClass reduces a verification error to a loggable category without
// echoing token contents.
func errorClass(err error) string {
	var jerr interface{ Unwrap() []error }
	if errors.As(err, &jerr) {
		for _, e := range jerr.Unwrap() {
			if !errors.Is(e, ErrInvalidCredential) {
				return e.Error()
			}
		}
	}
	return "invalid"
}
