package session

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// Decision is the outcome of an AccessGuard check.
type Decision struct {
	Allowed    bool
	RedirectTo string
}

// AccessGuard decides whether a protected route may be entered. It only
// inspects locally held state and never calls the network.
type AccessGuard struct {
	manager *Manager
}

// NewAccessGuard creates a guard backed by the manager.
func NewAccessGuard(manager *Manager) *AccessGuard {
	return &AccessGuard{manager: manager}
}

// Check allows the route when the session is authenticated. Otherwise it
// clears any stale local session and points at the login entry point.
func (guard *AccessGuard) Check(ctx context.Context, route string) Decision {
	if guard.manager.IsAuthenticated(ctx) {
		return Decision{Allowed: true}
	}
	if _, revived := guard.manager.discardStale(ctx, "guard.denied", false); revived {
		return Decision{Allowed: true}
	}
	guard.manager.metrics.Increment(metricGuardDenied)
	return Decision{RedirectTo: guard.loginRedirect(route)}
}

// GinMiddleware enforces Check on every request. Denied page requests are
// redirected; denied /api requests receive 401.
func (guard *AccessGuard) GinMiddleware() gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		decision := guard.Check(contextGin.Request.Context(), contextGin.Request.URL.RequestURI())
		if decision.Allowed {
			contextGin.Next()
			return
		}
		if strings.HasPrefix(contextGin.Request.URL.Path, "/api/") {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthenticated",
				"login": decision.RedirectTo,
			})
			return
		}
		contextGin.Redirect(http.StatusFound, decision.RedirectTo)
		contextGin.Abort()
	}
}

func (guard *AccessGuard) loginRedirect(route string) string {
	loginPath := guard.manager.loginPath
	if route == "" || route == "/" || route == loginPath || strings.HasPrefix(route, loginPath+"?") {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(route)
}
