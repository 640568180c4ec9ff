package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/packfinderz-settlement/api/controllers"
	earningscontrollers "github.com/angelmondragon/packfinderz-settlement/api/controllers/earnings"
	settlementcontrollers "github.com/angelmondragon/packfinderz-settlement/api/controllers/settlements"
	"github.com/angelmondragon/packfinderz-settlement/api/middleware"
	"github.com/angelmondragon/packfinderz-settlement/internal/earnings"
	"github.com/angelmondragon/packfinderz-settlement/pkg/auth/session"
	"github.com/angelmondragon/packfinderz-settlement/pkg/config"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
	"github.com/angelmondragon/packfinderz-settlement/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions session.AccessSessionChecker
	// Idempotency backs replay protection on admin mutations. Nil disables it.
	Idempotency redis.IdempotencyStore
	Readiness   []controllers.Dependency
	Earnings    earnings.Service
	Settlements settlementcontrollers.Operations
	Entries     settlementcontrollers.EntryReader
	// Metrics overrides the default Prometheus handler.
	Metrics http.Handler
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.Readiness...))
	})

	if cfg.FeatureFlags.ExposeMetrics {
		handler := params.Metrics
		if handler == nil {
			handler = promhttp.Handler()
		}
		r.Method(http.MethodGet, "/metrics", handler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, params.Sessions, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.StoreContext(logg))
			r.Get("/ping", controllers.WhoAmI("vendor"))

			r.Route("/v1/vendor/earnings", func(r chi.Router) {
				r.Use(middleware.RequireVendor(logg))
				r.Get("/summary", earningscontrollers.Summary(params.Earnings, logg))
				r.Get("/payouts", earningscontrollers.Payouts(params.Earnings, logg))
				r.Get("/sales-pending", earningscontrollers.PendingSales(params.Earnings, logg))
			})
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, params.Sessions, logg))
		r.Use(middleware.RequireRole(logg, enums.MemberRoleAdmin))
		r.Get("/ping", controllers.WhoAmI("admin"))

		// applied per endpoint so the middleware sees the full route pattern
		idempotent := middleware.Idempotency(params.Idempotency, logg)

		r.Route("/v1/settlements", func(r chi.Router) {
			r.Route("/entries/{entryId}", func(r chi.Router) {
				r.With(idempotent).Post("/retry", settlementcontrollers.Retry(params.Settlements, params.Entries, logg))
				r.With(idempotent).Post("/cancel", settlementcontrollers.Cancel(params.Settlements, params.Entries, logg))
				r.With(idempotent).Post("/payout", settlementcontrollers.Payout(params.Settlements, logg))
				r.Get("/transitions", settlementcontrollers.Transitions(params.Entries, logg))
			})
			r.Get("/payouts/attention", settlementcontrollers.Attention(params.Settlements, logg))
		})
	})

	return r
}
