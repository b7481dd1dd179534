package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shieldops/secrets/internal/audit"
	"github.com/shieldops/secrets/internal/config"
	cryptoDomain "github.com/shieldops/secrets/internal/crypto/domain"
	cryptoService "github.com/shieldops/secrets/internal/crypto/service"
	"github.com/shieldops/secrets/internal/database"
	"github.com/shieldops/secrets/internal/metrics"
	secretsHTTP "github.com/shieldops/secrets/internal/secrets/http"
	"github.com/shieldops/secrets/internal/secrets/repository"
	secretsUseCase "github.com/shieldops/secrets/internal/secrets/usecase"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// createTestServer wires a server to a real manager backed by in-memory
// storage.
func createTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	chain := cryptoDomain.NewMasterKeyChain("v1", &cryptoDomain.MasterKey{ID: "v1", Key: key})
	engine := cryptoService.NewEngine(chain, cryptoService.NewAEADManager(), cryptoDomain.AESGCM)

	manager := secretsUseCase.NewSecretManager(
		database.NewNoopTxManager(),
		repository.NewMemorySecretRepository(),
		engine,
		secretsUseCase.NopSyncNotifier{},
		secretsUseCase.NewCounters(),
		audit.NopLogger{},
		logger,
		3,
	)
	handler := secretsHTTP.NewSecretHandler(manager, logger)

	return NewServer(cfg, handler, manager, nil, logger)
}

func defaultTestConfig() *config.Config {
	return &config.Config{
		ServerHost: "localhost",
		ServerPort: 8080,
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	server := createTestServer(t, defaultTestConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "healthy", response["status"])
}

func TestServer_ReadyEndpoint(t *testing.T) {
	server := createTestServer(t, defaultTestConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "ready", response["status"])

	components, ok := response["components"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ok", components["storage"])
}

func TestServer_ReadyEndpoint_NilUseCase(t *testing.T) {
	server := createTestServer(t, defaultTestConfig())
	server.secretUseCase = nil

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "not_ready", response["status"])
}

func TestServer_SecretLifecycleThroughRouter(t *testing.T) {
	server := createTestServer(t, defaultTestConfig())
	router := server.GetHandler()

	body, err := json.Marshal(map[string]any{
		"name":  "db-password",
		"value": base64.StdEncoding.EncodeToString([]byte("hunter2")),
		"type":  "password",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/secrets", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	data := created["data"].(map[string]any)
	id := data["id"].(string)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/secrets/"+id, nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var fetched map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	fetchedData := fetched["data"].(map[string]any)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hunter2")), fetchedData["value"])

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/secrets/"+id+"/metadata", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	metaData := meta["data"].(map[string]any)
	assert.NotContains(t, metaData, "value")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/secrets/"+id+"/rotate", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/v1/secrets/"+id, nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestServer_SearchRouteNotShadowedByParam(t *testing.T) {
	server := createTestServer(t, defaultTestConfig())
	router := server.GetHandler()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/secrets/search?q=anything", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_RateLimiting(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.RateLimitEnabled = true
	cfg.RateLimitRequestsPerSec = 1
	cfg.RateLimitBurst = 2

	server := createTestServer(t, cfg)
	router := server.GetHandler()

	var lastCode int
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.1.2.3:12345"
		router.ServeHTTP(w, req)
		lastCode = w.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestServer_RateLimiting_IndependentPerClient(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.RateLimitEnabled = true
	cfg.RateLimitRequestsPerSec = 1
	cfg.RateLimitBurst = 1

	server := createTestServer(t, cfg)
	router := server.GetHandler()

	// Exhaust the first client's budget.
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:1000"
		router.ServeHTTP(w, req)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.2:1000"
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_RequestIDHeaderPresent(t *testing.T) {
	server := createTestServer(t, defaultTestConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.GetHandler().ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-Id")
	require.NotEmpty(t, requestID)

	parsed, err := uuid.Parse(requestID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, parsed)
}

func TestCustomLoggerMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsServer_Endpoints(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 8081, logger, provider)
	require.NotNil(t, metricsServer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsServer.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestServer_NoMetricsEndpoint(t *testing.T) {
	server := createTestServer(t, defaultTestConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
