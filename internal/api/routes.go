package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"estatehub/server/internal/metrics"
)

// RouterOptions carries the optional pieces of the router.
type RouterOptions struct {
	AllowedOrigins []string
	// Metrics is mounted at /metrics when set
	Metrics *metrics.Metrics
}

func NewRouter(handler *Handler, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(handler.logger))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
	}
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	SetupRoutes(router, handler)
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/healthz", handler.Health)

	api := router.Group("/api")
	{
		api.GET("/categories", handler.Categories)
		api.GET("/listings", handler.GetListings)
		api.GET("/listings/search", handler.SearchListings)
		api.GET("/listings/:id", handler.GetListing)
		api.POST("/admin/login", handler.Login)
	}

	admin := router.Group("/api/admin", handler.auth.Middleware())
	{
		admin.GET("/listings", handler.AdminListings)
		admin.GET("/stats", handler.AdminStats)
		admin.POST("/listings", handler.CreateListing)
		admin.PATCH("/listings/:id", handler.UpdateListing)
		admin.POST("/listings/:id/activate", handler.ActivateListing)
		admin.POST("/listings/:id/deactivate", handler.DeactivateListing)
		admin.DELETE("/listings/:id", handler.DeleteListing)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{StorageSourceHeader, RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
