package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/promptmart/promptmart-backend/api/controllers"
	"github.com/promptmart/promptmart-backend/api/middleware"
	"github.com/promptmart/promptmart-backend/internal/auth"
	"github.com/promptmart/promptmart-backend/internal/prompts"
	"github.com/promptmart/promptmart-backend/internal/users"
	"github.com/promptmart/promptmart-backend/pkg/config"
	"github.com/promptmart/promptmart-backend/pkg/logger"
	"github.com/promptmart/promptmart-backend/pkg/metrics"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	RateLimiter     rateLimiterStore
	Health          controllers.HealthDependencies
	Metrics         *metrics.HTTPMetrics
	MetricsRegistry *prometheus.Registry
	AuthService     auth.Service
	UsersService    users.Service
	PromptsService  prompts.Service
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.ClientOrigin),
	)
	if params.Metrics != nil {
		r.Use(params.Metrics.Middleware)
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, params.Health, logg))
	})

	if params.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(params.MetricsRegistry))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, params.RateLimiter, logg)).
			Post("/register", controllers.AuthRegister(params.AuthService, logg))
		r.Post("/verify-otp", controllers.AuthVerifyOTP(params.AuthService, cfg.JWT, cfg.App, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, params.RateLimiter, logg)).
			Post("/login", controllers.AuthLogin(params.AuthService, cfg.JWT, cfg.App, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, params.RateLimiter, logg)).
			Post("/forgot-password", controllers.AuthForgotPassword(params.AuthService, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(params.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(cfg.App, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/me", controllers.AuthMe(params.AuthService, logg))
		})
	})

	r.Route("/api/v1/prompts", func(r chi.Router) {
		r.Get("/", controllers.PromptsList(params.PromptsService, logg))
		r.Get("/{id}", controllers.PromptsGet(params.PromptsService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Post("/", controllers.PromptsCreate(params.PromptsService, cfg.Uploads, logg))
			r.Put("/{id}", controllers.PromptsUpdate(params.PromptsService, cfg.Uploads, logg))
			r.Delete("/{id}", controllers.PromptsDelete(params.PromptsService, logg))
			r.Post("/{id}/rate", controllers.PromptsRate(params.PromptsService, logg))
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/ping", controllers.PrivatePing())
		r.Get("/me", controllers.UserProfileGet(params.UsersService, logg))
		r.Put("/me", controllers.UserProfileUpdate(params.UsersService, logg))
		r.Put("/me/profile-picture", controllers.UserProfilePicture(params.UsersService, cfg.Uploads, logg))
	})

	return r
}
