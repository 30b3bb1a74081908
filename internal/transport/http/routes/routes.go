package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ghga-de/auth-adapter/internal/core/port"
	"github.com/ghga-de/auth-adapter/internal/infra/config"
	"github.com/ghga-de/auth-adapter/internal/transport/http/handlers"
	"github.com/ghga-de/auth-adapter/internal/transport/http/middleware"
	"github.com/ghga-de/auth-adapter/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Sessions     *usecase.SessionService
	TOTP         *usecase.TOTPService
	Registration *usecase.RegistrationService
	Exchange     *usecase.ExchangeService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Services ServiceSet
	Store    port.SessionStore
	Database DatabaseChecker
	Cache    CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware. The RPC
// endpoints drive the session lifecycle; everything else falls through to
// the catch-all exchange handler that answers the fronting proxy.
func Register(deps Dependencies) (*gin.Engine, error) {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, err
	}
	r.Use(metrics.Handler())

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	gate, err := middleware.NewAccessGate(deps.Config.Basic)
	if err != nil {
		return nil, err
	}

	resolveSession := middleware.SessionResolver(deps.Store, deps.Config.Session.CookieName, deps.Logger)

	secureCookies := deps.Config.App.Env == "production"
	sessionHandler := handlers.NewSessionHandler(deps.Services.Sessions, deps.Config.Session, secureCookies, deps.Logger)
	totpHandler := handlers.NewTOTPHandler(deps.Services.TOTP)
	userHandler := handlers.NewUserHandler(deps.Services.Registration)

	rpc := r.Group("/rpc")
	rpc.Use(resolveSession)
	rpc.Use(middleware.CSRFGuard())
	{
		// Login carries no session yet, so the CSRF guard passes it; the
		// bearer token it requires is its cross-site protection.
		rpc.POST("/login", sessionHandler.Login)
		rpc.POST("/logout", sessionHandler.Logout)
		rpc.POST("/totp-token", totpHandler.CreateToken)
		rpc.POST("/verify-totp", totpHandler.VerifyCode)
		rpc.POST("/register", userHandler.Register)
		rpc.PUT("/register", userHandler.Update)
	}

	// Everything else is the proxy's auth subrequest: gate it, resolve the
	// session and decide what the upstream Authorization header becomes.
	exchangeHandler := handlers.NewExchangeHandler(deps.Services.Exchange, deps.Logger)
	r.NoRoute(gate.Handler(), resolveSession, middleware.CSRFGuard(), exchangeHandler.Handle)

	return r, nil
}
