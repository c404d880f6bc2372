package router

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/receitas-ia/backend/config"
	"github.com/pageza/receitas-ia/backend/internal/api"
	"github.com/pageza/receitas-ia/backend/internal/middleware"
	"github.com/pageza/receitas-ia/backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, staticDir string) *gin.Engine {
	t.Helper()
	cfg := &config.Config{
		Server:  config.ServerConfig{MaxUploadBytes: service.MaxUploadBytes, StaticDir: staticDir},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"*"}},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Billing: config.BillingConfig{PublishableKey: "pk_test"},
	}
	h := Handlers{
		Recipes: api.NewRecipeHandler(nil, nil, cfg.Server.MaxUploadBytes),
		Quota:   api.NewQuotaHandler(nil),
		Billing: api.NewBillingHandler(nil),
		Config:  api.NewConfigHandler(cfg),
		Health:  api.NewHealthHandler(nil, nil),
	}
	return SetupRouter(cfg, h, service.NewAuthService("secret"), middleware.NewRateLimiter(nil, cfg.RateLimit, "receitas"))
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSetupRouterRoutes(t *testing.T) {
	r := newTestRouter(t, "")

	w := get(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = get(r, "/api/config")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pk_test")

	w = get(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "receitas_http_requests_total")

	w = get(r, "/api/quota")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/recipes", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "/api/nothing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error": "Rota não encontrada."}`, w.Body.String())
}

func TestSetupRouterServesWebClient(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o600))

	r := newTestRouter(t, dir)

	w := get(r, "/app.js")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = get(r, "/historico")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html>app</html>", w.Body.String())

	w = get(r, "/api/nothing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
