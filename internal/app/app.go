package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MinCodeHub/todak-BE/internal/auth"
	"github.com/MinCodeHub/todak-BE/internal/config"
	"github.com/MinCodeHub/todak-BE/internal/domain"
	"github.com/MinCodeHub/todak-BE/internal/event"
	"github.com/MinCodeHub/todak-BE/internal/google"
	handler "github.com/MinCodeHub/todak-BE/internal/handler/http"
	"github.com/MinCodeHub/todak-BE/internal/repository/postgres"
	"github.com/MinCodeHub/todak-BE/internal/repository/redis"
	"github.com/MinCodeHub/todak-BE/internal/service"
	"github.com/MinCodeHub/todak-BE/migrations"
	"github.com/MinCodeHub/todak-BE/pkg/database"
	"github.com/MinCodeHub/todak-BE/pkg/health"
	"github.com/MinCodeHub/todak-BE/pkg/httpclient"
	pkgkafka "github.com/MinCodeHub/todak-BE/pkg/kafka"
	"github.com/MinCodeHub/todak-BE/pkg/middleware"
	"github.com/MinCodeHub/todak-BE/pkg/tracing"
)

const slowQueryThreshold = 200 * time.Millisecond

// App wires together all dependencies and runs the accounts service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, cfg.ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryLog {
		database.SetSlowQueryLogging(slowQueryThreshold, logger)
	}

	// Initialize Redis for the API key cache.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	// Initialize Kafka producer.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Google tokeninfo client behind a circuit breaker.
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.GoogleVerifyTimeout
	clientCfg.UserAgent = cfg.ServiceName
	cbCfg := httpclient.DefaultCircuitBreakerConfig("google-tokeninfo")
	if cfg.GoogleBreakerThreshold > 0 {
		cbCfg.FailureRatio = cfg.GoogleBreakerThreshold
	}
	tokenInfoClient := httpclient.NewCircuitBreakerClient(httpclient.New(clientCfg), cbCfg, logger)

	verifier, err := google.NewVerifier(tokenInfoClient, cfg.GoogleTokenInfoURL, logger)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("create google verifier: %w", err)
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	userRepo := postgres.NewUserRepository(pool)
	socialRepo := postgres.NewSocialRepository(pool)
	tokenRepo := redis.NewCachedAuthTokenRepository(postgres.NewAuthTokenRepository(pool), redisClient, cfg.TokenCacheTTL, logger)
	eventProducer := event.NewProducer(producer, logger)

	accountService := service.NewAccountService(userRepo, tokenRepo, jwtManager, eventProducer, logger)
	socialService := service.NewSocialService(verifier, socialRepo, jwtManager, eventProducer, logger)

	if cfg.SocialAppSync {
		err := socialService.SyncApp(ctx, &domain.SocialApp{
			Provider: domain.ProviderGoogle,
			Name:     "Google",
			ClientID: cfg.GoogleClientID,
			Secret:   cfg.GoogleSecret,
		})
		if err != nil {
			pool.Close()
			_ = redisClient.Close()
			return nil, err
		}
		logger.Info("google social app synchronized")
	} else if err := socialService.CheckApp(ctx, domain.ProviderGoogle, cfg.GoogleClientID); err != nil {
		// Callbacks answer 500 until the registration exists.
		logger.Warn("google social app unavailable", slog.String("error", err.Error()))
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment
	router := handler.NewRouter(accountService, socialService, healthHandler, logger, handler.RouterConfig{
		ServiceName: cfg.ServiceName,
		CORS:        corsCfg,
		GoogleOAuth: google.LoginConfig{
			AuthURL:      cfg.GoogleRedirect,
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleSecret,
			CallbackURI:  cfg.GoogleCallbackURI,
			Scope:        cfg.GoogleScope,
		}.OAuthConfig(),
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.GoogleVerifyTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown stops the components in order: HTTP server, tracer, Kafka
// producer, Redis, PostgreSQL.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Flush spans after the HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
