package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/petjo-admin/internal/adminapi"
	"github.com/tyemirov/petjo-admin/internal/session"
	"go.uber.org/zap"
)

// StatsReader loads the dashboard overview from the admin API.
type StatsReader interface {
	SystemStats(ctx context.Context) (adminapi.SystemStats, error)
}

type loginForm struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// HandleLoginPage serves the login page, or sends an already signed-in caller on.
func HandleLoginPage(manager *session.Manager, dashboardPath string) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		if manager.IsAuthenticated(contextGin.Request.Context()) {
			contextGin.Redirect(http.StatusFound, safeNext(contextGin.Query("next"), dashboardPath))
			return
		}
		serveConsolePage(contextGin, "login.html")
	}
}

// HandleLogin submits credentials through the session manager.
func HandleLogin(logger *zap.Logger, manager *session.Manager, dashboardPath string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		var inbound loginForm
		if bindErr := contextGin.ShouldBind(&inbound); bindErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Email and password are required",
			})
			return
		}

		loginErr := manager.Login(contextGin.Request.Context(), session.Credentials{
			Email:    strings.TrimSpace(inbound.Email),
			Password: inbound.Password,
		})
		if loginErr != nil {
			status, message := describeLoginError(loginErr)
			logger.Info("console login rejected",
				zap.String("code", "web.login.rejected"),
				zap.Int("status", status),
				zap.Error(loginErr))
			contextGin.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{
			"success":  true,
			"redirect": safeNext(contextGin.Query("next"), dashboardPath),
		})
	}
}

// HandleLogout ends the session. It always succeeds.
func HandleLogout(manager *session.Manager) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		manager.Logout(contextGin.Request.Context())
		contextGin.JSON(http.StatusOK, gin.H{"success": true, "redirect": manager.LoginPath()})
	}
}

// HandleSession returns the published identity for the layout header.
func HandleSession(logger *zap.Logger, manager *session.Manager) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		identity := manager.CurrentIdentity()
		if identity == nil {
			logger.Warn("guarded request without published identity",
				zap.String("code", "web.session.missing_identity"))
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthenticated",
				"login": manager.LoginPath(),
			})
			return
		}
		var expiresAt *time.Time
		if expiry := identity.ExpiresAt(); !expiry.IsZero() {
			expiresAt = &expiry
		}
		contextGin.JSON(http.StatusOK, gin.H{
			"subject":    identity.Subject(),
			"initials":   identity.Initials(),
			"expires_at": expiresAt,
			"claims":     identity,
		})
	}
}

// HandleStats proxies the dashboard overview. An upstream rejection of the
// token forces a logout.
func HandleStats(logger *zap.Logger, manager *session.Manager, stats StatsReader) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		overview, statsErr := stats.SystemStats(contextGin.Request.Context())
		switch {
		case statsErr == nil:
			contextGin.JSON(http.StatusOK, gin.H{"success": true, "data": overview})
		case errors.Is(statsErr, adminapi.ErrUnauthorized), errors.Is(statsErr, session.ErrNotAuthenticated):
			logger.Warn("admin api rejected session",
				zap.String("code", "web.stats.unauthorized"),
				zap.Error(statsErr))
			manager.Logout(contextGin.Request.Context())
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthenticated",
				"login": manager.LoginPath(),
			})
		case errors.Is(statsErr, adminapi.ErrForbidden):
			contextGin.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Administrator role required"})
		default:
			logger.Error("admin api stats failed",
				zap.String("code", "web.stats.failed"),
				zap.Error(statsErr))
			contextGin.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"success": false, "message": "Failed to load stats"})
		}
	}
}

func describeLoginError(loginErr error) (int, string) {
	var failure *session.LoginFailure
	switch {
	case errors.Is(loginErr, session.ErrInvalidCredentials):
		return http.StatusUnprocessableEntity, "Enter a valid email and password"
	case errors.Is(loginErr, session.ErrLoginInProgress):
		return http.StatusConflict, "A sign-in is already in progress"
	case errors.Is(loginErr, session.ErrLoginSuperseded):
		return http.StatusConflict, "Sign-in was cancelled by a sign-out"
	case errors.Is(loginErr, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "The identity provider did not respond in time"
	case errors.As(loginErr, &failure):
		if failure.StatusCode >= 400 && failure.StatusCode < 500 {
			return http.StatusUnauthorized, failure.Message
		}
		return http.StatusBadGateway, failure.Message
	default:
		return http.StatusBadGateway, session.DefaultLoginFailureMessage
	}
}

func safeNext(next string, fallback string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, "/\\") {
		return next
	}
	return fallback
}
