package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/octobees/exhibitor-leads/internal/auth"
	"github.com/octobees/exhibitor-leads/internal/config"
	"github.com/octobees/exhibitor-leads/internal/handler"
	middlewarepkg "github.com/octobees/exhibitor-leads/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router. Runs is nil when no
// database is configured.
type Handlers struct {
	Auth    *handler.AuthHandler
	Extract *handler.ExtractHandler
	Enrich  *handler.EnrichHandler
	Runs    *handler.RunsHandler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, jwtManager *auth.JWTManager, gatherer prometheus.Gatherer, handlers Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	e.POST("/auth/token", handlers.Auth.Token)

	jwt := middlewarepkg.JWT(jwtManager)
	operator := middlewarepkg.RequireRole(auth.RoleOperator)

	e.POST("/extract", handlers.Extract.Extract, jwt, operator, middlewarepkg.RateLimit(cfg.RateLimitExtract))
	e.POST("/enrich", handlers.Enrich.Enrich, jwt, operator, middlewarepkg.RateLimit(cfg.RateLimitEnrich))

	if handlers.Runs == nil {
		return
	}
	runs := e.Group("/runs", jwt, operator)
	runs.POST("", handlers.Runs.Create, middlewarepkg.RateLimit(cfg.RateLimitRuns))
	runs.GET("/:id", handlers.Runs.Get)
	runs.GET("/:id/exhibitors", handlers.Runs.Exhibitors)
	runs.GET("/:id/contacts", handlers.Runs.Contacts)
}
