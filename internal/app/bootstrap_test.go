package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prompthub.io/prompthub/internal/api/middleware"
	"prompthub.io/prompthub/internal/config"
	"prompthub.io/prompthub/internal/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

func memoryConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, AllowCredentials: true},
		Log:    config.LogConfig{Level: "error", Format: "json"},
		Store: config.StoreConfig{
			Driver:       config.DriverMemory,
			Branch:       "main",
			MetadataPath: "metadata.json",
			Timeout:      time.Second,
		},
		Templates: config.TemplatesConfig{
			DefaultActor:          "System",
			TimestampOffset:       8 * time.Hour,
			OptimisticConcurrency: true,
		},
		Worker: config.WorkerConfig{DiscoveryPoolSize: 2},
	}
}

func TestBootstrap_UnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Store.Driver = "ftp"

	app, err := Bootstrap(context.Background(), cfg)
	require.Error(t, err, "Bootstrap should fail for an unknown store driver")
	assert.Nil(t, app, "Application should be nil on bootstrap failure")
}

func TestBootstrap_MemoryEndToEnd(t *testing.T) {
	app, err := Bootstrap(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer app.Shutdown()
	require.NoError(t, app.Start(context.Background()))

	serve := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		app.Router.ServeHTTP(w, req)
		return w
	}

	w := serve(http.MethodPost, "/api/templates",
		`{"name":"Risk Check","content":"Evaluate...","department":"Finance","appCode":"RC1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"createdBy":"System"`)

	w = serve(http.MethodGet, "/api/templates/Finance-RC1-Risk-Check", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(http.MethodGet, "/api/activities?limit=0", "")
	require.Equal(t, http.StatusBadRequest, w.Code, "limit below minimum is rejected by the contract")

	w = serve(http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "prompthub_"), "metrics exposition should include prompthub collectors")

	w = serve(http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestBootstrap_JWTAttributesActor(t *testing.T) {
	cfg := memoryConfig()
	cfg.Security.JWTSigningKey = "bootstrap-test-key-0123456789abcdef"

	app, err := Bootstrap(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Shutdown()

	body := `{"name":"Risk Check","content":"Evaluate...","department":"Finance","appCode":"RC1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/templates", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	token, _, err := middleware.GenerateToken(middleware.JWTConfig{
		SigningKey: []byte(cfg.Security.JWTSigningKey),
		Issuer:     middleware.DefaultIssuer,
		ExpiresIn:  time.Hour,
	}, "u-9", "carol")
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/api/templates", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"createdBy":"carol"`)

	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, w.Code, "health probes stay public")
}

func TestApplication_Shutdown_Nil(t *testing.T) {
	// Shutdown on empty application should not panic.
	app := &Application{}

	assert.NotPanics(t, func() {
		app.Shutdown()
	}, "Shutdown on empty Application should not panic")
}
