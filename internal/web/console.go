package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/petjo-admin/internal/session"
	webassets "github.com/tyemirov/petjo-admin/web"
	"go.uber.org/zap"
)

// DefaultDashboardPath is the landing page of the protected tree.
const DefaultDashboardPath = "/dashboard"

var (
	errMissingManager = errors.New("web.console.missing_manager")
	errMissingStats   = errors.New("web.console.missing_stats")
)

// Console wires the login entry point and the protected route tree.
type Console struct {
	Manager       *session.Manager
	Stats         StatsReader
	Logger        *zap.Logger
	DashboardPath string
}

func serveConsolePage(contextGin *gin.Context, page string) {
	ServeEmbeddedAsset(contextGin, webassets.FS, page)
}

// Mount registers the console. Everything except the login entry point and
// its assets sits behind the access guard; / and unknown paths land on the dashboard.
func (console Console) Mount(router *gin.Engine) error {
	if console.Manager == nil {
		return errMissingManager
	}
	if console.Stats == nil {
		return errMissingStats
	}
	dashboardPath := console.DashboardPath
	if strings.TrimSpace(dashboardPath) == "" {
		dashboardPath = DefaultDashboardPath
	}
	loginPath := console.Manager.LoginPath()
	guard := session.NewAccessGuard(console.Manager)

	router.GET(loginPath, HandleLoginPage(console.Manager, dashboardPath))
	router.POST(loginPath, HandleLogin(console.Logger, console.Manager, dashboardPath))
	router.POST("/logout", HandleLogout(console.Manager))
	router.GET("/console.js", func(contextGin *gin.Context) {
		ServeEmbeddedAsset(contextGin, webassets.FS, "console.js")
	})
	router.GET("/config.js", func(contextGin *gin.Context) {
		ServeConsoleConfig(contextGin, ConsoleConfig{LoginPath: loginPath, DashboardPath: dashboardPath})
	})

	protected := router.Group("/", guard.GinMiddleware())
	protected.GET("/", func(contextGin *gin.Context) {
		contextGin.Redirect(http.StatusFound, dashboardPath)
	})
	protected.GET(dashboardPath, func(contextGin *gin.Context) {
		serveConsolePage(contextGin, "dashboard.html")
	})
	protected.GET("/api/session", HandleSession(console.Logger, console.Manager))
	protected.GET("/api/stats", HandleStats(console.Logger, console.Manager, console.Stats))

	guardMiddleware := guard.GinMiddleware()
	router.NoRoute(guardMiddleware, func(contextGin *gin.Context) {
		if strings.HasPrefix(contextGin.Request.URL.Path, "/api/") {
			contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		contextGin.Redirect(http.StatusFound, dashboardPath)
	})
	return nil
}
