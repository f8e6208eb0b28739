package devidp

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const accessClaimsContextKey = "devidp_access_claims"

// RequireBearer verifies the Authorization bearer token and injects its claims.
// Tokens lacking the required role are rejected with 403.
func RequireBearer(configuration Config, requiredRole string) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		header := contextGin.GetHeader("Authorization")
		scheme, rawToken, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(rawToken) == "" {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "detail": "Not authenticated"})
			return
		}
		claims, parseErr := ParseAccessToken(strings.TrimSpace(rawToken), configuration)
		if parseErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "detail": "Could not validate credentials"})
			return
		}
		if requiredRole != "" && !hasRole(claims.UserRoles, requiredRole) {
			contextGin.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "detail": "Administrator role required"})
			return
		}
		contextGin.Set(accessClaimsContextKey, claims)
		contextGin.Next()
	}
}

func hasRole(roles []string, role string) bool {
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}
