package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openbiocard/openbiocard-backend/api/controllers"
	"github.com/openbiocard/openbiocard-backend/api/middleware"
	"github.com/openbiocard/openbiocard-backend/internal/identity"
	"github.com/openbiocard/openbiocard-backend/pkg/config"
	"github.com/openbiocard/openbiocard-backend/pkg/enums"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
	pkgredis "github.com/openbiocard/openbiocard-backend/pkg/redis"
)

type rateLimiter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Params carries everything the router wires. RateLimiter, Idempotency and
// RedisPinger stay nil when redis is not configured.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	Identity    identity.Service
	Storage     controllers.Pinger
	RedisPinger controllers.Pinger
	RateLimiter rateLimiter
	Idempotency pkgredis.IdempotencyStore
	Gatherer    prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg, logg, svc := p.Config, p.Logger, p.Identity

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	signinPolicy := middleware.NewAuthRateLimitPolicy(
		"signin",
		cfg.AuthRateLimit.SigninWindow,
		cfg.AuthRateLimit.SigninIPLimit,
		cfg.AuthRateLimit.SigninIdentifierLimit,
	)
	signupPolicy := middleware.NewAuthRateLimitPolicy(
		"signup",
		cfg.AuthRateLimit.SignupWindow,
		cfg.AuthRateLimit.SignupIPLimit,
		cfg.AuthRateLimit.SignupIdentifierLimit,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"reset",
		cfg.AuthRateLimit.ResetWindow,
		cfg.AuthRateLimit.ResetIPLimit,
		cfg.AuthRateLimit.ResetIdentifierLimit,
	)
	// Guards code submission on verification and password reset.
	verifyPolicy := middleware.NewAuthRateLimitPolicy(
		"verify",
		cfg.AuthRateLimit.VerifyWindow,
		cfg.AuthRateLimit.VerifyIPLimit,
		cfg.AuthRateLimit.VerifyIdentifierLimit,
	)
	idempotent := middleware.Idempotency(p.Idempotency, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Storage, p.RedisPinger))
	})

	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/settings", controllers.Settings(svc, logg))
		r.With(middleware.AuthRateLimit(signinPolicy, p.RateLimiter, logg)).Post("/signin", controllers.Signin(svc, logg))

		r.Route("/signup", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(signupPolicy, p.RateLimiter, logg), idempotent).Post("/create", controllers.Signup(svc, logg))
			r.With(middleware.AuthRateLimit(verifyPolicy, p.RateLimiter, logg)).Post("/verify-email", controllers.VerifyEmail(svc, logg))
		})

		r.Route("/password", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(resetPolicy, p.RateLimiter, logg)).Post("/reset-request", controllers.PasswordResetRequest(svc, logg))
			r.With(middleware.AuthRateLimit(verifyPolicy, p.RateLimiter, logg)).Post("/reset", controllers.PasswordReset(svc, logg))
		})

		r.Get("/users/{username}/profile", controllers.PublicProfile(svc, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(svc, logg))

			r.Get("/me", controllers.Me(logg))
			r.Get("/me/profile", controllers.MyProfile(svc, logg))
			r.Put("/me/profile", controllers.UpdateMyProfile(svc, logg))

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.AccountTypeAdmin, enums.AccountTypeRoot))

				r.Post("/check-permission", controllers.CheckPermission(logg))
				r.Get("/settings", controllers.Settings(svc, logg))
				r.Put("/settings", controllers.UpdateSettings(svc, logg))

				r.Get("/users", controllers.AdminListUsers(svc, logg))
				r.With(idempotent).Post("/users", controllers.AdminCreateUser(svc, logg))
				r.Post("/users/password", controllers.AdminChangePassword(svc, logg))
				r.Post("/users/sync-existing", controllers.AdminSyncExisting(svc, logg))
				r.Delete("/users/{username}", controllers.AdminDeleteUser(svc, logg))
			})
		})
	})

	return r
}
