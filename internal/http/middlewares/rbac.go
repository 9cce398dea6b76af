package middlewares

import (
	"net/http"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole runs after RequireAccessToken and only reads the principal.
func (m *AuthMiddleware) RequireRole(allowed ...user.Role) gin.HandlerFunc {
	set := make(map[user.Role]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}

	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		if !ok || p.Role == "" {
			abortWithError(c, http.StatusUnauthorized, "missing identity context")
			return
		}

		if _, ok := set[p.Role]; !ok {
			abortWithError(c, http.StatusForbidden, "insufficient permissions")
			return
		}
		c.Next()
	}
}
