package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"

	"github.com/MinCodeHub/todak-BE/internal/service"
	"github.com/MinCodeHub/todak-BE/pkg/health"
	"github.com/MinCodeHub/todak-BE/pkg/middleware"
)

// RouterConfig holds the settings the router needs beyond its services.
type RouterConfig struct {
	ServiceName string
	CORS        middleware.CORSConfig
	GoogleOAuth *oauth2.Config
}

// NewRouter creates a chi router with all accounts routes registered.
func NewRouter(
	accountService *service.AccountService,
	socialService *service.SocialService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.StripSlashes)

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	authHandler := NewAuthHandler(accountService, logger)
	userHandler := NewUserHandler(accountService, logger)
	googleHandler := NewGoogleHandler(socialService, cfg.GoogleOAuth, logger)

	r.Route("/api/accounts", func(r chi.Router) {
		// Every method reaches the callback; it answers 405 itself.
		r.HandleFunc("/google/callback", googleHandler.Callback)
		r.Get("/google/login", googleHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Post("/register/step1", authHandler.RegisterStep1)
			r.Post("/register/step2", authHandler.RegisterStep2)
			r.Post("/login", authHandler.Login)
			r.Get("/login", authHandler.LoginInfo)
		})

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(middleware.Auth(credentialValidator(accountService)))

			r.Put("/profile", userHandler.UpdateProfile)
			r.Patch("/profile", userHandler.UpdateProfile)
		})
	})

	return r
}
