package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/entitledhq/entitled/pkg/fingerprint"
	"github.com/entitledhq/entitled/pkg/httpserver"
	"github.com/entitledhq/entitled/subscription"
)

// RouterConfig wires the API surface. Gate, Processor, and Enrollment are
// required; readiness probes are optional.
type RouterConfig struct {
	Gate       *subscription.Gate
	Processor  WebhookProcessor
	Enrollment *subscription.Enrollment
	Resolver   AccountIDResolver
	UpgradeURL string
	Logger     *slog.Logger

	// ReadinessChecks gate the /healthz readiness endpoint, typically the
	// Postgres and Redis healthchecks.
	ReadinessChecks []func(context.Context) error
}

// NewRouter builds the service's HTTP routes:
//
//	POST /webhooks/billing           billing provider callback
//	POST /v1/subscriptions/trial     start the caller's trial
//	GET  /v1/subscriptions/status    full computed subscription state
//	POST /v1/subscriptions/verify    synchronous post-checkout re-read
//	GET  /livez                      liveness probe
//	GET  /healthz                    readiness probe
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Gate == nil {
		panic("httpapi: Gate is required")
	}
	if cfg.Processor == nil {
		panic("httpapi: Processor is required")
	}
	if cfg.Enrollment == nil {
		panic("httpapi: Enrollment is required")
	}
	if cfg.Resolver == nil {
		cfg.Resolver = HeaderAccountResolver("X-Account-ID")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/livez", httpserver.HealthCheckHandler(context.Background(), cfg.Logger))
	r.Get("/healthz", httpserver.HealthCheckHandler(context.Background(), cfg.Logger, cfg.ReadinessChecks...))

	r.Post("/webhooks/billing", handleBillingWebhook(cfg.Processor))

	r.Route("/v1/subscriptions", func(v1 chi.Router) {
		v1.With(fingerprint.Middleware).Post("/trial", handleStartTrial(cfg.Enrollment, cfg.Resolver))
		v1.Get("/status", handleSubscriptionStatus(cfg.Gate, cfg.Resolver, func() time.Time { return time.Now().UTC() }))
		v1.Post("/verify", handleSubscriptionVerify(cfg.Gate, cfg.Resolver))
	})

	return r
}
