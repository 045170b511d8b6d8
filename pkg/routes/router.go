package routes

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/clover/pkg/correlation"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/routes/assetmanager"
	correlationroutes "github.com/Ramsey-B/clover/pkg/routes/correlation"
	"github.com/Ramsey-B/clover/pkg/routes/element"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/routes/relationship"
)

const APIPrefix = "/api/v1"

// RouterConfig holds what NewRouter needs. Verifier is optional.
type RouterConfig struct {
	ServiceName string
	Logger      ectologger.Logger
	Manager     *correlation.Manager
	Health      *health.Checker
	// Verifier enables bearer token authentication on the API when set.
	Verifier middleware.TokenVerifier
}

// NewRouter builds the HTTP surface over the correlation manager.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(cfg.Logger)

	if cfg.ServiceName != "" {
		e.Use(otelecho.Middleware(cfg.ServiceName))
	}
	e.Use(middleware.Context())
	e.Use(middleware.Logger(cfg.Logger))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(e)
	}

	api := e.Group(APIPrefix)
	if cfg.Verifier != nil {
		api.Use(middleware.Authentication(cfg.Logger, cfg.Verifier))
	}

	elements := api.Group("/elements")
	element.Register(elements, cfg.Manager)
	correlationroutes.Register(elements, cfg.Manager)
	relationship.Register(api.Group("/relationships"), elements, cfg.Manager)
	assetmanager.Register(api.Group("/asset-managers"), cfg.Manager)

	return e
}
