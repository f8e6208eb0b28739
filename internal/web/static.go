package web

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errNoConsoleOrigins = errors.New("web.cors.no_origins")
	errWildcardOrigin   = errors.New("web.cors.wildcard_origin")
	errMalformedOrigin  = errors.New("web.cors.malformed_origin")
)

// ServeEmbeddedAsset writes a single embedded file. Pages are never cached so a
// logout is reflected on the next navigation.
func ServeEmbeddedAsset(contextGin *gin.Context, filesystem fs.FS, path string) {
	data, readErr := fs.ReadFile(filesystem, path)
	if readErr != nil {
		contextGin.AbortWithStatus(http.StatusNotFound)
		return
	}
	contentType := "application/octet-stream"
	switch {
	case strings.HasSuffix(path, ".html"):
		contentType = "text/html; charset=utf-8"
		contextGin.Header("Cache-Control", "no-store")
	case strings.HasSuffix(path, ".js"):
		contentType = "application/javascript; charset=utf-8"
		contextGin.Header("Cache-Control", "public, max-age=300")
	}
	contextGin.Header("X-Content-Type-Options", "nosniff")
	contextGin.Data(http.StatusOK, contentType, data)
}

// ConfigureCORS lets a separately hosted front-end call the console with credentials.
// Origins are canonicalized to scheme://host and deduplicated; wildcards are refused.
func ConfigureCORS(logger *zap.Logger, allowedOrigins []string) (gin.HandlerFunc, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make([]string, 0, len(allowedOrigins))
	seen := make(map[string]bool, len(allowedOrigins))
	for _, rawOrigin := range allowedOrigins {
		origin, insecure, err := canonicalOrigin(rawOrigin)
		if err != nil {
			return nil, err
		}
		if origin == "" || seen[origin] {
			continue
		}
		if insecure {
			logger.Warn("plain http console origin",
				zap.String("code", "web.cors.insecure_origin"),
				zap.String("origin", origin))
		}
		seen[origin] = true
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		return nil, errNoConsoleOrigins
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}), nil
}

// canonicalOrigin reports whether an http origin points somewhere other than the loopback host.
func canonicalOrigin(rawOrigin string) (string, bool, error) {
	trimmed := strings.TrimSpace(rawOrigin)
	switch trimmed {
	case "":
		return "", false, nil
	case "*":
		return "", false, errWildcardOrigin
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", false, fmt.Errorf("%w: %s", errMalformedOrigin, trimmed)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false, fmt.Errorf("%w: %s", errMalformedOrigin, trimmed)
	}
	if parsed.Host == "" || parsed.User != nil || strings.Trim(parsed.Path, "/") != "" || parsed.RawQuery != "" || parsed.Fragment != "" {
		return "", false, fmt.Errorf("%w: %s", errMalformedOrigin, trimmed)
	}
	insecure := scheme == "http" && !isLoopbackHost(parsed.Hostname())
	return scheme + "://" + strings.ToLower(parsed.Host), insecure, nil
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
