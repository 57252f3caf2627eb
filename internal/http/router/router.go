package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grantgenius/grantgenius-backend/internal/config"
	"github.com/grantgenius/grantgenius-backend/internal/http/handlers"
	"github.com/grantgenius/grantgenius-backend/internal/http/middleware"
	"github.com/grantgenius/grantgenius-backend/internal/metrics"
	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/service"
)

// Deps всё, что нужно роутеру.
type Deps struct {
	Config          *config.Config
	Tokens          *service.TokenManager
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	AuthHandler     *handlers.AuthHandler
	GrantHandler    *handlers.GrantHandler
	ProposalHandler *handlers.ProposalHandler
	HealthHandler   *handlers.HealthHandler
}

// SetupRouter объявляет все маршруты. Права проверяются только здесь,
// через middleware, а не внутри обработчиков.
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(d.Metrics))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", d.HealthHandler.Health)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	requireAuth := middleware.AuthMiddleware(d.Tokens)
	requireAdmin := middleware.RequireRole(models.UserRoleAdmin)

	authGroup := api.Group("/auth")
	{
		authRateLimit := middleware.RateLimitMiddleware("auth", cfg.AuthRateLimit, cfg.RateLimitPeriod)
		authGroup.POST("/register", authRateLimit, d.AuthHandler.Register)
		authGroup.POST("/login", authRateLimit, d.AuthHandler.Login)
		authGroup.POST("/refresh", d.AuthHandler.Refresh)
		authGroup.GET("/me", requireAuth, d.AuthHandler.Me)
	}

	grants := api.Group("/grants")
	{
		grants.GET("", d.GrantHandler.List)
		grants.GET("/:id", middleware.UUIDValidator("id"), d.GrantHandler.Get)
		grants.POST("", requireAuth, requireAdmin, d.GrantHandler.Create)
		grants.PATCH("/:id", requireAuth, requireAdmin, middleware.UUIDValidator("id"), d.GrantHandler.Update)
		grants.DELETE("/:id", requireAuth, requireAdmin, middleware.UUIDValidator("id"), d.GrantHandler.Delete)
	}

	admin := api.Group("/admin", requireAuth, requireAdmin)
	{
		admin.GET("/grants", d.GrantHandler.ListAll)
	}

	proposals := api.Group("/proposals", requireAuth)
	{
		proposals.GET("", d.ProposalHandler.List)
		proposals.POST("/generate",
			middleware.RateLimitMiddleware("generate", cfg.GenerateRateLimit, cfg.RateLimitPeriod),
			d.ProposalHandler.Generate)

		byID := proposals.Group("/:id", middleware.UUIDValidator("id"))
		byID.GET("", d.ProposalHandler.Get)
		byID.PATCH("", d.ProposalHandler.Update)
		byID.DELETE("", d.ProposalHandler.Delete)
		byID.POST("/autosave", d.ProposalHandler.Autosave)
		byID.GET("/export", d.ProposalHandler.Export)
	}

	return r
}
