package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/MinCodeHub/todak-BE/pkg/config"
	"github.com/MinCodeHub/todak-BE/pkg/database"
	"github.com/MinCodeHub/todak-BE/pkg/tracing"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the accounts service.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"todak-accounts"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"todak"`
	PostgresPass     string `env:"POSTGRES_PASSWORD" envDefault:"todak"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"todak"`
	PostgresSSL      string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	SlowQueryLog     bool   `env:"POSTGRES_SLOW_QUERY_LOG" envDefault:"false"`

	// Redis
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	TokenCacheTTL time.Duration `env:"AUTH_TOKEN_CACHE_TTL" envDefault:"10m"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	JWTSecret        string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTIssuer        string        `env:"JWT_ISSUER" envDefault:"todak-accounts"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"5m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"24h"`

	// Google sign-in. All five are required.
	GoogleScope       string `env:"GOOGLE_SCOPE_USERINFO,required,notEmpty"`
	GoogleRedirect    string `env:"GOOGLE_REDIRECT,required,notEmpty"`
	GoogleCallbackURI string `env:"GOOGLE_CALLBACK_URI,required,notEmpty"`
	GoogleClientID    string `env:"GOOGLE_CLIENT_ID,required,notEmpty"`
	GoogleSecret      string `env:"GOOGLE_SECRET,required,notEmpty"`

	GoogleTokenInfoURL     string        `env:"GOOGLE_TOKENINFO_URL" envDefault:"https://www.googleapis.com/oauth2/v3/tokeninfo"`
	GoogleVerifyTimeout    time.Duration `env:"GOOGLE_VERIFY_TIMEOUT" envDefault:"10s"`
	GoogleBreakerThreshold float64       `env:"GOOGLE_BREAKER_FAILURE_RATIO" envDefault:"0.5"`

	// SocialAppSync upserts the google social_apps row from the settings
	// above at startup. When false the row is only checked for.
	SocialAppSync bool `env:"SOCIAL_APP_SYNC" envDefault:"true"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Tracing
	TracingEnabled    bool    `env:"OTEL_TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate float64 `env:"OTEL_TRACES_SAMPLER_ARG" envDefault:"1.0"`
}

// Load reads configuration from the environment, after applying any of the
// given dotenv files.
func Load(dotenv ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, dotenv...); err != nil {
		return nil, fmt.Errorf("load accounts config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	// Outside development an explicitly set, strong JWT secret is required.
	if c.Environment != "development" {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(c.JWTSecret))
		}
	}
	if c.JWTAccessExpiry <= 0 || c.JWTRefreshExpiry <= 0 {
		return errors.New("JWT token lifetimes must be positive")
	}

	for name, raw := range map[string]string{
		"GOOGLE_REDIRECT":      c.GoogleRedirect,
		"GOOGLE_CALLBACK_URI":  c.GoogleCallbackURI,
		"GOOGLE_TOKENINFO_URL": c.GoogleTokenInfoURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.GoogleVerifyTimeout <= 0 {
		return fmt.Errorf("GOOGLE_VERIFY_TIMEOUT must be positive, got %s", c.GoogleVerifyTimeout)
	}

	return nil
}

// Postgres returns the connection settings for the pgx pool.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	if c.PostgresMaxConns > 0 {
		pg.MaxConns = c.PostgresMaxConns
	}
	return pg
}

// Redis returns the connection settings for the token cache.
func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Host = c.RedisHost
	rc.Port = c.RedisPort
	rc.Password = c.RedisPassword
	rc.DB = c.RedisDB
	return rc
}

// Tracing returns the OpenTelemetry exporter settings.
func (c *Config) Tracing() tracing.Config {
	tc := tracing.DefaultConfig(c.ServiceName)
	tc.Environment = c.Environment
	tc.Enabled = c.TracingEnabled
	tc.OTLPEndpoint = c.TracingEndpoint
	tc.SampleRate = c.TracingSampleRate
	return tc
}
