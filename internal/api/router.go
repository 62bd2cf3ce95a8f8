package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/troikatech/keycheck/internal/api/handlers"
	"github.com/troikatech/keycheck/internal/web"
	"github.com/troikatech/keycheck/pkg/env"
	"github.com/troikatech/keycheck/pkg/errors"
	"github.com/troikatech/keycheck/pkg/middleware"
	"github.com/troikatech/keycheck/pkg/otel"
)

// NewRouter wires middleware and routes around h.
func NewRouter(cfg *env.Config, h *handlers.Handler) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TraceMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(64 << 10))
	router.Use(middleware.RequestMetrics())

	if cfg.OTELEnabled {
		router.Use(otel.GinMiddleware())
	}

	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] %s %s %d %s\n",
			param.TimeStamp.Format(time.RFC3339),
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
		)
	}))

	router.SetHTMLTemplate(web.Templates())
	router.NoRoute(func(c *gin.Context) {
		errors.NotFound(c, "no such route")
	})

	// Health stays outside the access gate for load balancers
	router.GET("/health", h.HealthCheck)

	gated := router.Group("")
	if cfg.AccessGateEnabled() {
		gated.Use(middleware.AccessGate(cfg.AccessUser, cfg.AccessPasswordHash))
	}

	gated.GET("/metrics", h.GetMetrics)
	gated.StaticFS("/static", http.FS(web.StaticFS()))

	page := gated.Group("")
	page.Use(middleware.CSRF(cfg.AppEnv == "production"))
	{
		page.GET("/", h.Index)
		page.POST("/probes/text", h.RunTextProbe)
		page.POST("/probes/image", h.RunImageProbe)
	}

	origins := cfg.AllowedOrigins()

	apiGroup := gated.Group("/api")
	if len(origins) > 0 {
		apiGroup.Use(cors.New(corsConfigFor(origins)))
	}
	apiGroup.Use(middleware.APIGuard(origins))
	{
		apiGroup.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		apiGroup.GET("/credential", h.GetCredential)
		apiGroup.POST("/probes/text", h.ProbeText)
		apiGroup.POST("/probes/image", h.ProbeImage)
	}

	return router
}

func corsConfigFor(origins []string) cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = origins
	for _, o := range origins {
		if o == "*" {
			corsConfig.AllowAllOrigins = true
			corsConfig.AllowOrigins = nil
		}
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	return corsConfig
}
