package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ConsoleConfig contains values exposed to the console script.
type ConsoleConfig struct {
	LoginPath     string
	DashboardPath string
}

// ServeConsoleConfig emits a JavaScript payload that sets window.__PETJO_ADMIN_CONFIG.
func ServeConsoleConfig(contextGin *gin.Context, configuration ConsoleConfig) {
	payload := struct {
		LoginPath     string `json:"loginPath"`
		DashboardPath string `json:"dashboardPath"`
	}{
		LoginPath:     configuration.LoginPath,
		DashboardPath: configuration.DashboardPath,
	}

	encoded, encodeErr := json.Marshal(payload)
	if encodeErr != nil {
		contextGin.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "web.console_config.encode_failed",
		})
		return
	}

	script := fmt.Sprintf(`(function(){window.__PETJO_ADMIN_CONFIG=Object.freeze(%s);})();`, string(encoded))

	contextGin.Header("Content-Type", "application/javascript; charset=utf-8")
	contextGin.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
	contextGin.Header("Pragma", "no-cache")
	contextGin.Header("X-Content-Type-Options", "nosniff")
	contextGin.String(http.StatusOK, script)
}
