package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"warehouse-system/internal/database/models"
	sysutils "warehouse-system/internal/utils"
)

const claimsKey = "claims"

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}

// JWTAuth requires a valid "Authorization: Bearer <token>" header and stores
// the token claims on the context.
func JWTAuth(tokens *sysutils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			abort(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := tokens.ParseToken(parts[1])
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole lets the request through only when the caller has one of roles.
// It must run after JWTAuth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		for _, role := range roles {
			if claims.Role == string(role) {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "Insufficient permissions")
	}
}

func CurrentClaims(c *gin.Context) (*sysutils.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*sysutils.Claims)
	return claims, ok
}

// Actor is the username of the authenticated caller, or "" when there is none.
func Actor(c *gin.Context) string {
	if claims, ok := CurrentClaims(c); ok {
		return claims.Username
	}
	return ""
}
