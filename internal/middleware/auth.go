package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"ridehail/internal/auth"
	"ridehail/internal/domain"
)

const currentUserKey = "currentUser"

// IdentityResolver turns a bearer token into the user it was issued for.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (*domain.User, error)
}

// Authenticate requires a valid bearer token and stores the resolved user on the context.
func Authenticate(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			_ = c.Error(auth.ErrMissingToken)
			c.Abort()
			return
		}

		user, err := resolver.ResolveIdentity(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(currentUserKey, user)
		c.Set(userIDKey, user.ID)
		c.Next()
	}
}

// Authorize allows only users holding one of roles. It must run after Authenticate.
func Authorize(roles ...domain.Role) gin.HandlerFunc {
	allowed := make([]string, 0, len(roles))
	for _, r := range roles {
		allowed = append(allowed, string(r))
	}

	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			_ = c.Error(auth.ErrMissingToken)
			c.Abort()
			return
		}

		if !auth.IsAuthorized(string(user.Role), allowed...) {
			_ = c.Error(&auth.RoleError{Role: string(user.Role)})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil outside Authenticate.
func CurrentUser(c *gin.Context) *domain.User {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := value.(*domain.User)
	return user
}
