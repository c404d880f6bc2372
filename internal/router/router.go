package router

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pageza/receitas-ia/backend/config"
	"github.com/pageza/receitas-ia/backend/internal/api"
	"github.com/pageza/receitas-ia/backend/internal/middleware"
	"github.com/pageza/receitas-ia/backend/internal/types"
)

// Handlers groups the HTTP handlers mounted by SetupRouter.
type Handlers struct {
	Recipes *api.RecipeHandler
	Quota   *api.QuotaHandler
	Billing *api.BillingHandler
	Config  *api.ConfigHandler
	Health  *api.HealthHandler
}

// SetupRouter configures the application routes
func SetupRouter(cfg *config.Config, h Handlers, auth middleware.TokenValidator, limiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Metrics(),
		middleware.CORS(cfg.CORS),
		middleware.BodyLimit(cfg.Server.MaxUploadBytes),
		middleware.ErrorHandler(),
	)

	h.Health.RegisterRoutes(router)
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	public := router.Group("/api")
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(auth))

	h.Config.RegisterRoutes(public)
	h.Billing.RegisterRoutes(public, protected)
	h.Quota.RegisterRoutes(protected)
	h.Recipes.RegisterRoutes(protected, limiter.RateLimitMiddleware())

	router.NoRoute(notFound(cfg.Server.StaticDir))

	return router
}

// notFound answers unknown API paths with JSON and, when staticDir is set,
// serves the web client with index.html as the fallback.
func notFound(staticDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if staticDir == "" || strings.HasPrefix(path, "/api/") || c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "Rota não encontrada."})
			return
		}

		file := filepath.Join(staticDir, filepath.Clean("/"+path))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(filepath.Join(staticDir, "index.html"))
	}
}
