package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ghga-de/auth-adapter/internal/core/port"
	"github.com/ghga-de/auth-adapter/internal/infra/config"
	"github.com/ghga-de/auth-adapter/internal/infra/database"
	"github.com/ghga-de/auth-adapter/internal/infra/idp"
	kafkainfra "github.com/ghga-de/auth-adapter/internal/infra/kafka"
	"github.com/ghga-de/auth-adapter/internal/infra/logger"
	redisinfra "github.com/ghga-de/auth-adapter/internal/infra/redis"
	"github.com/ghga-de/auth-adapter/internal/infra/security"
	"github.com/ghga-de/auth-adapter/internal/infra/telemetry"
	"github.com/ghga-de/auth-adapter/internal/repository/memory"
	postgresrepo "github.com/ghga-de/auth-adapter/internal/repository/postgres"
	redisrepo "github.com/ghga-de/auth-adapter/internal/repository/redis"
	"github.com/ghga-de/auth-adapter/internal/transport/http/routes"
	"github.com/ghga-de/auth-adapter/internal/usecase"
)

// Application bundles the wired gateway with the resources it owns.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracing  *telemetry.TracerProvider
}

// New wires configuration into a runnable gateway: registry database,
// session store, event publisher, token codec, identity provider client
// and the HTTP surface on top of them.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if _, err := telemetry.Attach(ctx, cfg); err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var tracing *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracing, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	keyProvider, err := security.NewKeyProvider(cfg.App.Env, cfg.JWT.KeyDirectory, cfg.JWT.KeyID)
	if err != nil {
		return nil, fmt.Errorf("init key provider: %w", err)
	}

	codec, err := security.NewTokenCodec(keyProvider, cfg.JWT.KeyID, cfg.JWT.TokenValidity)
	if err != nil {
		return nil, fmt.Errorf("init token codec: %w", err)
	}

	totpHandler, err := security.NewTOTPHandler(security.TOTPConfig{
		Issuer:        cfg.TOTP.Issuer,
		Digits:        cfg.TOTP.Digits,
		Interval:      cfg.TOTP.Interval,
		Tolerance:     cfg.TOTP.Tolerance,
		MaxAttempts:   cfg.TOTP.MaxAttempts,
		SecretSize:    cfg.TOTP.SecretSize,
		EncryptionKey: cfg.TOTP.EncryptionKey,
	})
	if err != nil {
		return nil, fmt.Errorf("init totp handler: %w", err)
	}

	idpClient, err := idp.NewClient(cfg.IdP.UserInfoURL, cfg.IdP.Timeout, log)
	if err != nil {
		return nil, fmt.Errorf("init idp client: %w", err)
	}

	// An empty Redis host selects the in-memory store; fine for a single
	// replica, sessions are lost on restart.
	var (
		store       port.SessionStore
		redisClient *redisinfra.Client
		cache       routes.CacheChecker
	)
	if cfg.Redis.Host != "" {
		redisClient, err = redisinfra.NewClient(cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		store = redisrepo.NewSessionStore(redisClient.Client(), cfg.Redis.SessionPrefix, cfg.Session.IdleTimeout, cfg.Session.MaxLifetime)
		cache = redisClient
	} else {
		log.Info("redis not configured, using in-memory session store")
		store = memory.NewSessionStore(cfg.Session.IdleTimeout, cfg.Session.MaxLifetime)
	}

	var (
		eventPublisher port.EventPublisher
		producer       *kafkainfra.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	repos := postgresrepo.NewRepositories(pool)

	sessionService := usecase.NewSessionService(cfg.Session, store, idpClient, repos.Users, repos.Claims, log)
	totpService := usecase.NewTOTPService(totpHandler, store, eventPublisher, log)
	registrationService := usecase.NewRegistrationService(repos.Users, store, eventPublisher, log)
	exchangeService := usecase.NewExchangeService(codec, idpClient, repos.Users, repos.Claims, log)

	engine, err := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Store:    store,
		Database: pool,
		Cache:    cache,
		Services: routes.ServiceSet{
			Sessions:     sessionService,
			TOTP:         totpService,
			Registration: registrationService,
			Exchange:     exchangeService,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
		tracing:  tracing,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully and releases the owned resources.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()
	defer func() {
		if a.tracing != nil {
			_ = a.tracing.Shutdown(context.Background())
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth gateway",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
