package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

// Pinger reports whether a backing service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules  []Module
	Verifier middleware.AccessVerifier
	DB       *gorm.DB
	Cache    Pinger
	// Uploads serves stored files from Dir under Prefix. Empty Dir disables it.
	UploadsDir    string
	UploadsPrefix string
	// Metrics exposes Gatherer at MetricsPath when both are set.
	Gatherer    prometheus.Gatherer
	MetricsPath string
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}
	if deps.Verifier == nil {
		return errors.New("access token verifier is required")
	}

	r.GET("/health", healthHandler(deps.DB, deps.Cache))

	if deps.Gatherer != nil && deps.MetricsPath != "" {
		r.GET(deps.MetricsPath, gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	if deps.UploadsDir != "" {
		prefix := "/" + strings.Trim(deps.UploadsPrefix, "/")
		if prefix == "/" {
			return errors.New("uploads prefix must not be the site root")
		}
		handler := cacheStaticHandler(prefix, gin.Dir(deps.UploadsDir, false))
		r.GET(prefix+"/*filepath", handler)
		r.HEAD(prefix+"/*filepath", handler)
	}

	public := r.Group("/api/v1")
	protected := r.Group("/api/v1", middleware.Authenticate(deps.Verifier))

	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(public, protected)
	}

	r.HandleMethodNotAllowed = true
	r.NoRoute(noRouteHandler())
	r.NoMethod(noMethodHandler())

	return nil
}

// healthHandler pings the database and the cache and reports per-component
// status. Any failing component turns the answer into a 503.
func healthHandler(db *gorm.DB, cache Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		components := gin.H{"database": "ok"}
		code := http.StatusOK

		if db == nil {
			components["database"] = "error"
			code = http.StatusServiceUnavailable
		} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			components["database"] = "error"
			code = http.StatusServiceUnavailable
		}

		if cache != nil {
			components["cache"] = "ok"
			if err := cache.Ping(ctx); err != nil {
				components["cache"] = "error"
				code = http.StatusServiceUnavailable
			}
		}

		status := "ok"
		if code != http.StatusOK {
			status = "degraded"
		}
		c.JSON(code, gin.H{
			"status":     status,
			"components": components,
		})
	}
}

func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, pkg.Response{Code: http.StatusNotFound, Message: "not found"})
	}
}

func noMethodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, pkg.Response{Code: http.StatusMethodNotAllowed, Message: "method not allowed"})
	}
}

// cacheStaticHandler serves uploaded files. Directories are never listed.
// Stored names are random and never reused, so responses can be cached for a
// long time.
func cacheStaticHandler(prefix string, fsys http.FileSystem) gin.HandlerFunc {
	fileServer := http.StripPrefix(prefix, http.FileServer(fsys))
	notFound := noRouteHandler()
	return func(c *gin.Context) {
		f, err := fsys.Open(c.Param("filepath"))
		if err != nil {
			notFound(c)
			return
		}
		info, err := f.Stat()
		f.Close()
		if err != nil || info.IsDir() {
			notFound(c)
			return
		}

		c.Header("Cache-Control", "public, max-age=86400")
		c.Header("X-Content-Type-Options", "nosniff")
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
