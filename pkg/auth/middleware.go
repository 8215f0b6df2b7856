package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pharmacy-platform/stock-request-service/pkg/errors"
	"github.com/pharmacy-platform/stock-request-service/pkg/logging"
	"github.com/pharmacy-platform/stock-request-service/pkg/middleware"
)

// Context keys set by Authenticate
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUserName = "user_name"
	ContextKeyUserRole = "user_role"
)

// Authenticate validates the bearer token and stores the actor in the
// request context.
func Authenticate(tm *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized("Authorization header is required"))
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized("invalid token format"))
			return
		}

		claims, err := tm.ParseToken(tokenString)
		if err != nil {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized("invalid or expired token"))
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUserName, claims.Name)
		c.Set(ContextKeyUserRole, claims.Role)
		c.Request = c.Request.WithContext(logging.ContextWithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}

// Authorize is a middleware factory that restricts access to the given roles.
// Authenticate must run earlier in the chain.
func Authorize(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleValue, exists := c.Get(ContextKeyUserRole)
		if !exists {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized("authentication required"))
			return
		}

		role, ok := roleValue.(string)
		if !ok {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized("authentication required"))
			return
		}

		for _, allowed := range allowedRoles {
			if allowed == role {
				c.Next()
				return
			}
		}

		middleware.AbortWithAppError(c, errors.ErrForbidden("you do not have permission to access this resource"))
	}
}

// CurrentActor extracts the authenticated actor from the request context
func CurrentActor(c *gin.Context) (Actor, bool) {
	id, okID := c.Get(ContextKeyUserID)
	role, okRole := c.Get(ContextKeyUserRole)
	if !okID || !okRole {
		return Actor{}, false
	}

	actor := Actor{}
	if s, ok := id.(string); ok {
		actor.ID = s
	}
	if s, ok := role.(string); ok {
		actor.Role = s
	}
	if name, ok := c.Get(ContextKeyUserName); ok {
		if s, ok := name.(string); ok {
			actor.Name = s
		}
	}

	return actor, actor.ID != ""
}
