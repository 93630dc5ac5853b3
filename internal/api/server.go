// Package api exposes the host hooks and operator actions over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/IgorPritula/entity-ref-dependency/internal/app"
	"github.com/IgorPritula/entity-ref-dependency/internal/buildinfo"
	"github.com/IgorPritula/entity-ref-dependency/internal/logging"
)

// Options configures the router.
type Options struct {
	// CORSOrigins enables CORS for these origins. Empty disables CORS.
	CORSOrigins []string
	Logger      *slog.Logger
}

// Handler serves the API for one App.
type Handler struct {
	app    *app.App
	logger *slog.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(a *app.App, opts Options) *gin.Engine {
	h := &Handler{app: a, logger: logging.For(opts.Logger, logging.ChannelHTTP)}

	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders: []string{"Content-Type"},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": buildinfo.VersionOr("devel")})
	})

	v1 := r.Group("/api/v1")
	{
		entities := v1.Group("/entities")
		entities.POST("", h.SaveEntity)
		entities.DELETE("/:type/:id", h.DeleteEntity)
		entities.GET("/:type/:id/dependents", h.Dependents)
		entities.GET("/:type/:id/refs", h.Refs)

		v1.POST("/reindex", h.Reindex)
		v1.POST("/queue/tick", h.QueueTick)
		v1.GET("/stats", h.Stats)
	}
	return r
}

// requestLogger logs one line per request on the http channel.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
		}
		switch {
		case status >= 500:
			h.logger.Error("request failed", append(attrs, "error", c.Errors.String())...)
		case status >= 400:
			h.logger.Warn("request rejected", attrs...)
		default:
			h.logger.Debug("request", attrs...)
		}
	}
}
