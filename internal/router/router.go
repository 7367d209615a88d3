package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/stemsi/course-planner/internal/config"
	"github.com/stemsi/course-planner/internal/handler"
	"github.com/stemsi/course-planner/internal/metrics"
	"github.com/stemsi/course-planner/internal/middleware"
	"github.com/stemsi/course-planner/internal/response"
)

// catalogMaxAge is the browser cache lifetime of catalog listings, in seconds.
const catalogMaxAge = 60

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	Catalog *handler.CatalogHandler
	Import  *handler.ImportHandler
	Planner *handler.PlannerHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// Deps carries the cross-cutting collaborators of the router.
type Deps struct {
	Tokens        middleware.SessionTokenValidator
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	UploadLimiter *middleware.RateLimiter
	Log           zerolog.Logger
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, deps Deps, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "Accept-Language", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID and language first so every later log line and error
	// envelope carries them.
	router.Use(
		response.RequestIDMiddleware(deps.Log),
		response.LanguageMiddleware(),
		middleware.RequestLogger(deps.Metrics),
		middleware.Brotli(),
	)

	// ─── 0. Operations ─────────────────────────────────────────────────
	router.GET("/health", handlers.System.Health)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")

	api.GET("/system/status", handlers.System.Status)

	// ─── 1. Sessions (Public) ──────────────────────────────────────────
	api.POST("/sessions", middleware.NoStore(), handlers.Session.CreateSession)

	// ─── 2. Catalog ────────────────────────────────────────────────────
	catalog := api.Group("/catalog")
	{
		catalog.GET("/departments", middleware.CacheControl(catalogMaxAge), handlers.Catalog.ListDepartments)
		catalog.GET("",
			middleware.RequireSessionToken(deps.Tokens),
			middleware.CacheControl(catalogMaxAge),
			handlers.Catalog.ListCatalog,
		)

		uploads := []gin.HandlerFunc{middleware.NoStore()}
		if deps.UploadLimiter != nil {
			uploads = append(uploads, deps.UploadLimiter.Middleware())
		}
		catalog.POST("/imports", append(uploads, handlers.Import.UploadCatalog)...)
		catalog.GET("/imports/:id", middleware.NoStore(), handlers.Import.GetImport)
	}

	// ─── 3. Planner (Session Token) ────────────────────────────────────
	planner := api.Group("/planner")
	planner.Use(middleware.RequireSessionToken(deps.Tokens), middleware.NoStore())
	{
		planner.GET("", handlers.Planner.GetPlanner)
		planner.POST("/enrollments", handlers.Planner.Enroll)
		planner.DELETE("/enrollments/:position", handlers.Planner.Remove)
		planner.GET("/timetable", handlers.Planner.Timetable)
		planner.GET("/export", handlers.Planner.Export)
	}

	// ─── 4. WebSocket (Session Token via ?token=) ──────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireSessionToken(deps.Tokens))
	{
		ws.GET("/planner/stream", handlers.WS.PlannerStream)
	}

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	return router
}
