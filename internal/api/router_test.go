package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/aipara_account_server/config"
	"github.com/qs3c/aipara_account_server/internal/api/handler"
	"github.com/qs3c/aipara_account_server/internal/pkg/jwt"
	"github.com/qs3c/aipara_account_server/internal/pkg/metrics"
	"github.com/qs3c/aipara_account_server/internal/pkg/response"
	"github.com/qs3c/aipara_account_server/internal/pkg/ws"
	"github.com/qs3c/aipara_account_server/internal/repository"
	"github.com/qs3c/aipara_account_server/internal/service"
	"github.com/qs3c/aipara_account_server/internal/testutil"
)

const routerSecret = "router-test-secret"

func setupEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	testutil.SeedCatalog(t, db)

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		JWT:    config.JWTConfig{Secret: routerSecret},
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	profiles := service.NewProfileService(
		repository.NewProfileRepository(db),
		repository.NewSubscriptionRepository(db),
		repository.NewLedgerRepository(db),
		repository.NewPlanRepository(db),
		repository.NewTransactor(db),
		nil, cfg, nil,
	)
	dispatcher := service.NewDispatcher(profiles, nil, m, nil)

	router := NewRouter(
		handler.NewProfileHandler(dispatcher),
		handler.NewAccountHandler(profiles, nil),
		handler.NewWebSocketHandler(ws.NewHub(nil), routerSecret, nil, nil),
		m,
		reg,
		cfg,
	)
	return router.Setup()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRouter_Health(t *testing.T) {
	engine := setupEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestRouter_UnknownRoute(t *testing.T) {
	engine := setupEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/nope", nil))
	resp := decode(t, w)
	assert.Equal(t, response.CodeNotFound, resp.Code)
	assert.Equal(t, "接口不存在", resp.Message)
}

func TestRouter_ServiceEntry(t *testing.T) {
	engine := setupEngine(t)
	token, err := jwt.GenerateToken("uid_router", routerSecret, 1)
	require.NoError(t, err)

	post := func(body, auth string) response.Response {
		req := httptest.NewRequest("POST", "/api/v1/profile-service", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if auth != "" {
			req.Header.Set("Authorization", "Bearer "+auth)
		}
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return decode(t, w)
	}

	assert.Equal(t, response.CodeInvalidRequest, post(`{}`, "").Code)
	assert.Equal(t, response.CodeUnauthorized, post(`{"action":"profile.sync"}`, "").Code)
	assert.Equal(t, response.CodeUnauthorized, post(`{"action":"profile.sync"}`, "garbage").Code)
	assert.Equal(t, response.CodeSuccess, post(`{"action":"profile.sync"}`, token).Code)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `aipara_account_actions_total{action="profile.sync",code="0"} 1`)
	assert.Contains(t, w.Body.String(), `path="/api/v1/profile-service"`)
}

func TestRouter_AccountRequiresAuth(t *testing.T) {
	engine := setupEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/account", nil))
	resp := decode(t, w)
	assert.Equal(t, response.CodeUnauthorized, resp.Code)
	assert.Equal(t, "请提供认证信息", resp.Message)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/plans", nil))
	assert.Equal(t, response.CodeSuccess, decode(t, w).Code)
}
