// Router wiring for the development backend.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate the correlation id
//  3. Logger: structured access logs with the request id
//  4. Recovery: panics become JSON 500s after logging
//  5. Body size limit
//  6. Prometheus metrics
//  7. Rate limiter (per client IP)
//  8. CORS + gzip
package mockserver

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/nmikhaylov/go-interview-widget/internal/config"
	"github.com/nmikhaylov/go-interview-widget/internal/mockserver/middleware"
)

// NewRouter builds the gin engine with the full middleware chain and all
// public and admin endpoints.
func NewRouter(store *Store, cfg config.MockServerConfig, serviceName string) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(serviceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst)
	r.Use(rl.Handler())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, codeNoRoute, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		fail(c, http.StatusMethodNotAllowed, codeNoMethod, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := NewHandlers(store)
	api := r.Group("/api")
	{
		// Widget contract
		api.GET("/i/:token", h.GetSessionByToken)
		api.GET("/sessions/:id", h.GetSession)
		api.POST("/sessions/:id/message", h.PostMessage)

		admin := api.Group("/admin")
		{
			admin.GET("/employees", h.ListEmployees)
			admin.POST("/employees", h.CreateEmployee)
			admin.GET("/employees/:id", h.GetEmployee)
			admin.PATCH("/employees/:id", h.UpdateEmployee)
			admin.DELETE("/employees/:id", h.DeleteEmployee)
			admin.POST("/employees/:id/invite", h.CreateInvite)
			admin.GET("/employees/:id/sessions", h.ListEmployeeSessions)
			admin.DELETE("/invites/:id", h.RevokeInvite)
			admin.GET("/sessions/:id", h.GetAdminSession)

			admin.GET("/questions", h.ListQuestions)
			admin.POST("/questions", h.CreateQuestion)
			admin.PATCH("/questions/:id", h.UpdateQuestion)
			admin.DELETE("/questions/:id", h.DeleteQuestion)

			admin.GET("/prompts", h.ListPrompts)
			admin.POST("/prompts", h.CreatePrompt)
			admin.POST("/prompts/:id/activate", h.ActivatePrompt)

			admin.GET("/budget", h.GetBudget)
			admin.GET("/settings", h.GetSettings)
			admin.PUT("/settings", h.UpdateSettings)
			admin.DELETE("/settings/:key", h.ResetSetting)
		}
	}
	return r
}

// corsMiddleware allows everything when no origins are configured (dev
// default) and an allowlist otherwise.
func corsMiddleware(origins []string) gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		base.AllowAllOrigins = true
	} else {
		base.AllowOrigins = origins
	}
	return cors.New(base)
}

// limitBody caps the request body size using http.MaxBytesReader; oversized
// bodies error on read in the JSON binder.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
