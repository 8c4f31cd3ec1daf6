package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campushub/clubhub-api/internal/service"
	appErrors "github.com/campushub/clubhub-api/pkg/errors"
	"github.com/campushub/clubhub-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// JWT requires a valid bearer access token and stores its claims on the
// context for handlers and RequireRoles. Unauthorized responses echo the
// requested path so clients can redirect back after login.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := map[string]interface{}{"path": c.Request.URL.Path}

		token := bearerToken(c)
		if token == "" {
			response.ErrorWithMeta(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing bearer token"), meta)
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			response.ErrorWithMeta(c, err, meta)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
