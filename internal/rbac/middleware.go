package rbac

import (
	"net/http"

	"hiring-pipeline/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireActor enforces that an authenticated actor with a known role is in context.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := auth.UserID(c.Request.Context())
		if err != nil || uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
			return
		}
		raw, err := auth.Role(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if _, ok := ParseRole(raw); !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unknown role"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole allows access if the caller has any of the provided roles.
// Rules:
// - admin bypasses all checks
// - unknown roles are always denied
//
// This gates whole route groups only. Per-transition role rules live in the
// workflow transition table.
func RequireAnyRole(allowed ...Role) gin.HandlerFunc {
	allowedSet := make(map[Role]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		raw, err := auth.Role(c.Request.Context())
		if err != nil || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		role, ok := ParseRole(raw)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		if IsAdmin(role) {
			c.Next()
			return
		}

		if _, ok := allowedSet[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// ActorRole reads the caller's role from the request context.
func ActorRole(c *gin.Context) (Role, bool) {
	raw, err := auth.Role(c.Request.Context())
	if err != nil {
		return "", false
	}
	return ParseRole(raw)
}
