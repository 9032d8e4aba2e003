package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/entitledhq/entitled/pkg/clock"
	"github.com/entitledhq/entitled/pkg/logger"
)

// ReconcilerConfig holds stale-event sweep configuration.
type ReconcilerConfig struct {
	Interval   time.Duration `env:"RECONCILER_INTERVAL" envDefault:"1m"`
	StaleAfter time.Duration `env:"RECONCILER_STALE_AFTER" envDefault:"5m"`
}

// Reconciler periodically re-opens ledger records stuck in processing, for
// example after a worker crash mid-event. Without the sweep a stuck record
// would absorb every provider redelivery forever, since duplicates of an
// in-flight event are acknowledged without reprocessing.
type Reconciler struct {
	ledger     EventLedger
	interval   time.Duration
	staleAfter time.Duration
	clock      clock.Clock
	log        *slog.Logger
}

// ReconcilerOption configures optional reconciler collaborators.
type ReconcilerOption func(*Reconciler)

func WithReconcilerClock(c clock.Clock) ReconcilerOption {
	return func(r *Reconciler) { r.clock = c }
}

func WithReconcilerLogger(log *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.log = log }
}

// NewReconciler creates the stale-event sweep.
func NewReconciler(cfg ReconcilerConfig, ledger EventLedger, opts ...ReconcilerOption) *Reconciler {
	if ledger == nil {
		panic("subscription: EventLedger is required")
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}

	r := &Reconciler{
		ledger:     ledger,
		interval:   interval,
		staleAfter: staleAfter,
		clock:      clock.System(),
		log:        slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run sweeps on a ticker until the context is canceled. It returns the
// context's error, so it slots directly into an errgroup alongside the HTTP
// server.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep performs one pass. Exposed separately so operators can trigger it
// out of cycle.
func (r *Reconciler) Sweep(ctx context.Context) {
	now := r.clock.Now()
	cutoff := now.Add(-r.staleAfter)

	reopened, err := r.ledger.ReopenStale(ctx, cutoff, now)
	if err != nil {
		r.log.ErrorContext(ctx, "stale event sweep failed", logger.Error(err))
		return
	}

	if reopened > 0 {
		r.log.WarnContext(ctx, "reopened stale processing events",
			slog.Int64("count", reopened))
	}
}
