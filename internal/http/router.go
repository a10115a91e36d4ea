// Package httpapi wires the HTTP transport (Gin) to the advisor services,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, logging, panic recovery, metrics, rate limiting,
// CORS, and security headers.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs with header masking
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and security headers
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/gestioweb/go-advisor-backend/internal/advisor/snapshot"
	"github.com/gestioweb/go-advisor-backend/internal/config"
	"github.com/gestioweb/go-advisor-backend/internal/http/handlers"
	"github.com/gestioweb/go-advisor-backend/internal/http/middleware"
	"github.com/gestioweb/go-advisor-backend/internal/llm"
	"github.com/gestioweb/go-advisor-backend/internal/services"
)

// RegisterRoutes attaches all middleware and endpoints to the given Gin
// engine and wires the service graph. The LLM engine is only mounted when
// an API key is configured; the rule-based engine always is.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging (sensitive headers masked)
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (allow all when no origins configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "risorsa non trovata")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "metodo non consentito")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← db/config
	builder := snapshot.NewBuilder(db, log.With().Str("component", "snapshot").Logger())
	insights := &services.InsightService{DB: db, Log: log.With().Str("component", "insights").Logger()}
	advisorSvc := services.NewAdvisorService(db, builder, insights, log.With().Str("component", "advisor").Logger())
	feedbackSvc := &services.FeedbackService{DB: db, Log: log.With().Str("component", "feedback").Logger()}

	var thinkingSvc handlers.AnswerEngine
	if cfg.LLM.APIKey != "" {
		client := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.ConnectTimeout, cfg.LLM.Timeout)
		thinkingSvc = &services.ThinkingService{
			DB:             db,
			Snapshots:      builder,
			Client:         client,
			Log:            log.With().Str("component", "thinking").Logger(),
			Model:          cfg.LLM.Model,
			FallbackModels: cfg.LLM.FallbackModels,
			Temperature:    cfg.LLM.Temperature,
			TopP:           cfg.LLM.TopP,
			MaxTokens:      cfg.LLM.MaxTokens,
		}
	} else {
		log.Warn().Msg("OPENROUTER_API_KEY not set, llm engine disabled")
	}

	h := handlers.New(advisorSvc, thinkingSvc, advisorSvc, feedbackSvc)

	// Public API (gzip-compressed: context lines and snapshots are chatty)
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		api.POST("/advisor/ask", h.Ask)
		api.GET("/advisor/conversations", h.ListConversations)
		api.POST("/advisor/conversations/:id/feedback", h.GiveFeedback)
	}
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader; oversized bodies error on read downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
