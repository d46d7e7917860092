// Package apierr holds the stable error codes surfaced to clients and the
// helper that writes them. Every rejection body is {"error": ..., "code": ...}.
package apierr

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Codes are part of the client contract; keep them stable.
const (
	CodeNotAuthenticated      = "NOT_AUTHENTICATED"
	CodeInvalidToken          = "INVALID_TOKEN"
	CodeNoToken               = "NO_TOKEN"
	CodePlatformAdminRequired = "PLATFORM_ADMIN_REQUIRED"
	CodeTenantRequired        = "TENANT_REQUIRED"
	CodeTenantAdminRequired   = "TENANT_ADMIN_REQUIRED"
	CodeInternal              = "INTERNAL_ERROR"
	CodeAuth                  = "AUTH_ERROR"
	CodeTenantValidation      = "TENANT_VALIDATION_ERROR"

	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeBadRequest       = "BAD_REQUEST"
	CodeMembershipExists = "MEMBERSHIP_EXISTS"
	CodeConflict         = "CONFLICT"
)

type Body struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Abort writes the error body and stops the gin handler chain.
func Abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, Body{Error: msg, Code: code})
}

// Internal aborts with a generic 500; err is recorded on the gin context for
// the request logger and never sent to the client.
func Internal(c *gin.Context, code string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	Abort(c, http.StatusInternalServerError, code, "Internal server error")
}

// Recovery converts panics escaping a handler into a 500 INTERNAL_ERROR.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		Abort(c, http.StatusInternalServerError, CodeInternal, "Internal server error")
	})
}
