package web

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	webassets "github.com/tyemirov/petjo-admin/web"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestServeEmbeddedAsset(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/page", func(contextGin *gin.Context) {
		ServeEmbeddedAsset(contextGin, webassets.FS, "login.html")
	})
	router.GET("/missing", func(contextGin *gin.Context) {
		ServeEmbeddedAsset(contextGin, webassets.FS, "missing.js")
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/page", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if contentType := recorder.Header().Get("Content-Type"); contentType != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", contentType)
	}
	if cacheControl := recorder.Header().Get("Cache-Control"); cacheControl != "no-store" {
		t.Fatalf("expected pages to be uncached, got %q", cacheControl)
	}

	missRecorder := httptest.NewRecorder()
	router.ServeHTTP(missRecorder, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if missRecorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing asset, got %d", missRecorder.Code)
	}
}

func TestConfigureCORS(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	middleware, err := ConfigureCORS(nil, []string{"http://localhost:4200", "http://localhost:4200/"})
	if err != nil {
		t.Fatalf("unexpected error configuring CORS: %v", err)
	}
	router.Use(middleware)
	router.OPTIONS("/api/session", func(contextGin *gin.Context) {
		contextGin.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodOptions, "/api/session", nil)
	request.Header.Set("Origin", "http://localhost:4200")
	request.Header.Set("Access-Control-Request-Method", http.MethodGet)
	router.ServeHTTP(recorder, request)

	if origin := recorder.Header().Get("Access-Control-Allow-Origin"); origin != "http://localhost:4200" {
		t.Fatalf("unexpected allowed origin header: %q", origin)
	}
}

func TestConfigureCORSRejectsUnsafeOrigins(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		origins     []string
		expectedErr error
	}{
		{name: "none", origins: nil, expectedErr: errNoConsoleOrigins},
		{name: "blank", origins: []string{"  "}, expectedErr: errNoConsoleOrigins},
		{name: "wildcard", origins: []string{"*"}, expectedErr: errWildcardOrigin},
		{name: "scheme", origins: []string{"ftp://example.com"}, expectedErr: errMalformedOrigin},
		{name: "path", origins: []string{"https://example.com/app"}, expectedErr: errMalformedOrigin},
		{name: "userinfo", origins: []string{"https://admin@example.com"}, expectedErr: errMalformedOrigin},
	}
	for _, testCase := range testCases {
		if _, err := ConfigureCORS(nil, testCase.origins); !errors.Is(err, testCase.expectedErr) {
			t.Fatalf("%s: expected %v, got %v", testCase.name, testCase.expectedErr, err)
		}
	}
}

func TestCanonicalOriginFlagsRemotePlainHTTP(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		raw              string
		expectedOrigin   string
		expectedInsecure bool
	}{
		{raw: "HTTPS://Admin.PetJo.com/", expectedOrigin: "https://admin.petjo.com"},
		{raw: "http://localhost:4200", expectedOrigin: "http://localhost:4200"},
		{raw: "http://127.0.0.1:8080", expectedOrigin: "http://127.0.0.1:8080"},
		{raw: "http://[::1]:8080", expectedOrigin: "http://[::1]:8080"},
		{raw: "http://admin.petjo.com", expectedOrigin: "http://admin.petjo.com", expectedInsecure: true},
	}
	for _, testCase := range testCases {
		origin, insecure, err := canonicalOrigin(testCase.raw)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", testCase.raw, err)
		}
		if origin != testCase.expectedOrigin || insecure != testCase.expectedInsecure {
			t.Fatalf("%s: got (%q, %v)", testCase.raw, origin, insecure)
		}
	}
}

func TestConfigureCORSWarnsOnRemotePlainHTTP(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	if _, err := ConfigureCORS(zap.New(core), []string{"http://admin.petjo.com", "https://admin.petjo.com"}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	entries := logs.FilterField(zap.String("code", "web.cors.insecure_origin")).All()
	if len(entries) != 1 {
		t.Fatalf("expected one insecure origin warning, got %d", len(entries))
	}
}
