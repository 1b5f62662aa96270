// Package server assembles the gin engine: middleware, the /api routes,
// observability endpoints and the static frontend.
package server

import (
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskboard/internal/cache"
	"taskboard/internal/config"
	"taskboard/internal/handlers"
	"taskboard/internal/middleware"
	"taskboard/internal/monitoring"
	"taskboard/internal/services"
)

type Options struct {
	Services *services.Services
	Logger   *logrus.Logger

	AllowedOrigins []string
	Static         config.StaticConfig

	// Cache and Warmer are optional; the /cache routes exist only with Cache.
	Cache  cache.Cache
	Warmer *cache.CacheWarmer
}

func NewRouter(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.RecoveryWithLog(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(monitoring.MetricsMiddleware())
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	r.GET("/health", monitoring.HealthHandler())
	r.GET("/ready", monitoring.ReadinessHandler())
	r.GET("/live", monitoring.LivenessHandler())
	r.GET("/metrics", monitoring.PrometheusHandler())
	r.GET("/metrics/app", monitoring.MetricsHandler())

	api := r.Group("/api")
	api.Use(middleware.JSONBody())
	handlers.RegisterAPI(api, opts.Services)

	if opts.Cache != nil {
		handlers.RegisterCache(r.Group("/cache"), handlers.NewCacheHandler(opts.Cache, opts.Warmer))
	}

	r.NoRoute(fallback(opts.Static))

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// fallback answers every unmatched route. Unknown /api paths get a JSON 404;
// everything else is served from the static directory, with the index page
// standing in for client-side routes.
func fallback(static config.StaticConfig) gin.HandlerFunc {
	var root http.FileSystem
	if static.Dir != "" {
		root = http.Dir(static.Dir)
	}
	index := static.Index
	if index == "" {
		index = "index.html"
	}

	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if root == nil || p == "/api" || strings.HasPrefix(p, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		if serveFile(c, root, path.Clean("/"+p)) || serveFile(c, root, "/"+index) {
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	}
}

// serveFile writes name from root and reports whether it was a regular
// file. http.ServeContent is used directly because http.FileServer
// redirects any path ending in /index.html.
func serveFile(c *gin.Context, root http.FileSystem, name string) bool {
	f, err := root.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
	return true
}
