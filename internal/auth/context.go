package auth

import (
	"context"

	"github.com/gin-gonic/gin"
)

type ctxKey struct{}

const ginIdentityKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// SetIdentity attaches id to both the request context and the gin context.
func SetIdentity(c *gin.Context, id Identity) {
	c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
	c.Set(ginIdentityKey, id)
}

// FromGin returns the identity attached by Authenticate.
func FromGin(c *gin.Context) (Identity, bool) {
	if v, ok := c.Get(ginIdentityKey); ok {
		if id, ok := v.(Identity); ok && id.UserID != "" {
			return id, true
		}
	}
	return IdentityFrom(c.Request.Context())
}
