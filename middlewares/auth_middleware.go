package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/menu-catalog/utils"
)

// RequireToken guards a route group with an HS256 bearer token. With an
// empty secret the middleware lets every request through.
func RequireToken(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		if len(key) == 0 {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, "Authorization header missing")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := utils.ParseToken(key, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set("subject", claims.Name)
		c.Set("role", claims.Role)
		c.Next()
	}
}
