package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/omarvides/restyle-backend/api/controllers"
	webhookcontrollers "github.com/omarvides/restyle-backend/api/controllers/webhooks"
	"github.com/omarvides/restyle-backend/api/middleware"
	"github.com/omarvides/restyle-backend/internal/billing"
	"github.com/omarvides/restyle-backend/internal/profiles"
	"github.com/omarvides/restyle-backend/internal/showcase"
	lemonsqueezywebhook "github.com/omarvides/restyle-backend/internal/webhooks/lemonsqueezy"
	"github.com/omarvides/restyle-backend/pkg/config"
	"github.com/omarvides/restyle-backend/pkg/db"
	"github.com/omarvides/restyle-backend/pkg/lemonsqueezy"
	"github.com/omarvides/restyle-backend/pkg/logger"
	"github.com/omarvides/restyle-backend/pkg/redis"
	"github.com/omarvides/restyle-backend/pkg/storage/supabase"
)

// RouterParams collects everything the HTTP surface depends on.
type RouterParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   redis.Pinger
	Storage supabase.Pinger

	Metrics http.Handler

	ShowcaseService   showcase.Service
	ProfileService    profiles.Service
	GenerationService controllers.GenerationService
	BillingService    *billing.Service

	LemonSqueezyClient *lemonsqueezy.Client
	WebhookService     *lemonsqueezywebhook.Service
	WebhookGuard       *lemonsqueezywebhook.IdempotencyGuard

	ExtraOrigins []string
}

// NewRouter assembles the full route tree.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(p.ExtraOrigins...),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis, p.Storage))
	})

	if p.Metrics != nil {
		r.Handle("/metrics", p.Metrics)
	}

	r.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/showcase", controllers.ShowcaseList(p.ShowcaseService, logg))
	})

	// Typed nil pointers must not leak into the handler's interface checks.
	var webhookSvc webhookcontrollers.LemonSqueezyWebhookService
	if p.WebhookService != nil {
		webhookSvc = p.WebhookService
	}
	var signingClient webhookcontrollers.SigningClient
	if p.LemonSqueezyClient != nil {
		signingClient = p.LemonSqueezyClient
	}
	var webhookGuard webhookcontrollers.WebhookGuard
	if p.WebhookGuard != nil {
		webhookGuard = p.WebhookGuard
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/lemonsqueezy", webhookcontrollers.LemonSqueezyWebhook(webhookSvc, signingClient, webhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth, logg))

		r.Route("/generations", func(r chi.Router) {
			r.Post("/", controllers.GenerationCreate(p.GenerationService, logg))
			r.Post("/edit", controllers.GenerationEdit(p.GenerationService, logg))
			r.Post("/{id}/variations", controllers.GenerationVariations(p.GenerationService, logg))
			r.Get("/", controllers.GenerationList(p.GenerationService, logg))
			r.Delete("/{id}", controllers.GenerationDelete(p.GenerationService, logg))
		})

		var checkoutSvc controllers.CheckoutService
		if p.BillingService != nil {
			checkoutSvc = p.BillingService
		}

		r.Get("/profile", controllers.ProfileGet(p.ProfileService, logg))
		r.Post("/billing/checkout", controllers.BillingCheckout(checkoutSvc, logg))
	})

	return r
}
