package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/entitledhq/entitled/pkg/clock"
	"github.com/entitledhq/entitled/pkg/keylock"
	"github.com/entitledhq/entitled/pkg/logger"
	"github.com/entitledhq/entitled/pkg/webhook"
)

// ProcessorConfig holds webhook processor configuration.
type ProcessorConfig struct {
	WebhookSecret   string        `env:"BILLING_WEBHOOK_SECRET,required"`
	SignatureMaxAge time.Duration `env:"BILLING_SIGNATURE_MAX_AGE" envDefault:"5m"`
}

// Outcome tells the transport layer how to answer the billing provider.
// Accepted maps to 2xx. A rejected outcome with Retryable set maps to 5xx so
// the provider redelivers; without it, 4xx so it does not.
type Outcome struct {
	Accepted  bool
	Retryable bool
}

// DedupFilter is an optional fast-path cache in front of the event ledger.
// It short-circuits redeliveries of fully processed events without a ledger
// round-trip. Best effort only: a filter miss or failure falls through to
// the ledger, which remains the source of truth.
type DedupFilter interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSeen(ctx context.Context, eventID string) error
}

// Notifier delivers lifecycle notices after a persisted transition.
// Implementations must be fire-and-forget: a notification failure never
// rolls back or delays the state change.
type Notifier interface {
	NotifyTransition(ctx context.Context, acct AccountSubscription, from, to Status)
}

// Processor consumes billing provider webhook events: it authenticates them,
// collapses duplicate deliveries through the event ledger, serializes
// per-customer mutations through the keyed lock, applies transitions, and
// persists the result.
type Processor struct {
	secret   string
	maxAge   time.Duration
	store    AccountStore
	ledger   EventLedger
	locker   keylock.Locker
	notifier Notifier
	recorder TransitionRecorder
	dedup    DedupFilter
	clock    clock.Clock
	log      *slog.Logger
}

// ProcessorOption configures optional processor collaborators.
type ProcessorOption func(*Processor)

func WithNotifier(n Notifier) ProcessorOption {
	return func(p *Processor) { p.notifier = n }
}

func WithTransitionRecorder(r TransitionRecorder) ProcessorOption {
	return func(p *Processor) { p.recorder = r }
}

func WithDedupFilter(d DedupFilter) ProcessorOption {
	return func(p *Processor) { p.dedup = d }
}

func WithProcessorClock(c clock.Clock) ProcessorOption {
	return func(p *Processor) { p.clock = c }
}

func WithProcessorLogger(log *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.log = log }
}

// NewProcessor creates a webhook event processor.
// Panics on missing required collaborators to fail fast during initialization.
func NewProcessor(cfg ProcessorConfig, store AccountStore, ledger EventLedger, locker keylock.Locker, opts ...ProcessorOption) *Processor {
	if cfg.WebhookSecret == "" {
		panic("subscription: webhook secret is required")
	}
	if store == nil {
		panic("subscription: AccountStore is required")
	}
	if ledger == nil {
		panic("subscription: EventLedger is required")
	}
	if locker == nil {
		panic("subscription: Locker is required")
	}

	p := &Processor{
		secret: cfg.WebhookSecret,
		maxAge: cfg.SignatureMaxAge,
		store:  store,
		ledger: ledger,
		locker: locker,
		clock:  clock.System(),
		log:    slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Handle processes one raw webhook delivery. It never returns an error to
// the caller; every failure mode is folded into the Outcome, and internal
// error text never leaves the process boundary.
func (p *Processor) Handle(ctx context.Context, payload []byte, sig webhook.SignatureHeaders) Outcome {
	now := p.clock.Now()

	if err := webhook.VerifySignature(p.secret, payload, sig, now, p.maxAge); err != nil {
		p.log.WarnContext(ctx, "rejected unverifiable webhook delivery", logger.Error(err))
		return Outcome{Accepted: false, Retryable: false}
	}

	ev, err := ParseBillingEvent(payload)
	if err != nil {
		p.log.WarnContext(ctx, "rejected malformed webhook payload", logger.Error(err))
		return Outcome{Accepted: false, Retryable: false}
	}

	log := p.log.With(logger.EventID(ev.ID), logger.EventType(string(ev.Type)))

	if p.dedup != nil {
		if seen, err := p.dedup.Seen(ctx, ev.ID); err == nil && seen {
			return Outcome{Accepted: true}
		}
	}

	outcome, err := p.ledger.InsertIfAbsent(ctx, ev.ID, string(ev.Type), now)
	if err != nil {
		log.ErrorContext(ctx, "event ledger insert failed", logger.Error(err))
		return Outcome{Accepted: false, Retryable: true}
	}

	switch outcome {
	case OutcomeAlreadyCompleted:
		return Outcome{Accepted: true}
	case OutcomeAlreadyProcessing:
		// A concurrent delivery owns this event; acknowledge and let the
		// original holder finish rather than applying the transition twice.
		return Outcome{Accepted: true}
	}

	if !ev.Type.Known() {
		if err := p.ledger.MarkIgnored(ctx, ev.ID, p.clock.Now()); err != nil {
			log.ErrorContext(ctx, "failed to mark event ignored", logger.Error(err))
			return Outcome{Accepted: false, Retryable: true}
		}
		log.InfoContext(ctx, "acknowledged unhandled event type")
		p.markSeen(ctx, ev.ID)
		return Outcome{Accepted: true}
	}

	if err := p.locker.WithLock(ctx, lockKeyForEvent(ev), func(ctx context.Context) error {
		return p.applyLocked(ctx, ev)
	}); err != nil {
		p.markFailed(ctx, ev.ID, err)

		if isRejectable(err) {
			log.WarnContext(ctx, "event rejected", logger.Error(err))
			return Outcome{Accepted: false, Retryable: false}
		}
		log.ErrorContext(ctx, "event processing failed", logger.Error(err))
		return Outcome{Accepted: false, Retryable: true}
	}

	if err := p.ledger.MarkCompleted(ctx, ev.ID, p.clock.Now()); err != nil {
		// The transition is persisted; a redelivery would re-run it, so this
		// must surface as retryable only after marking failed is attempted.
		log.ErrorContext(ctx, "failed to mark event completed", logger.Error(err))
		return Outcome{Accepted: false, Retryable: true}
	}

	p.markSeen(ctx, ev.ID)

	return Outcome{Accepted: true}
}

func (p *Processor) markSeen(ctx context.Context, eventID string) {
	if p.dedup == nil {
		return
	}
	if err := p.dedup.MarkSeen(ctx, eventID); err != nil {
		p.log.WarnContext(ctx, "failed to update dedup cache",
			logger.EventID(eventID), logger.Error(err))
	}
}

// applyLocked runs inside the per-customer critical section: load, apply,
// persist, notify.
func (p *Processor) applyLocked(ctx context.Context, ev BillingEvent) error {
	acct, err := p.resolveAccount(ctx, ev)
	if err != nil {
		return err
	}

	now := p.clock.Now()
	next, applied, err := ApplyEvent(acct, ev, now)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	if err := p.store.Save(ctx, next); err != nil {
		return fmt.Errorf("persist account %s: %w", next.AccountID, err)
	}

	if acct.Status != next.Status {
		p.recordTransition(ctx, next.AccountID, acct.Status, next.Status, now)
		if p.notifier != nil {
			p.notifier.NotifyTransition(ctx, next, acct.Status, next.Status)
		}
	}

	return nil
}

func (p *Processor) resolveAccount(ctx context.Context, ev BillingEvent) (AccountSubscription, error) {
	switch {
	case ev.AccountID != "":
		return p.store.Get(ctx, ev.AccountID)
	case ev.CustomerID != "":
		return p.store.GetByCustomerID(ctx, ev.CustomerID)
	}
	return AccountSubscription{}, ErrMissingAccountRef
}

func (p *Processor) recordTransition(ctx context.Context, accountID string, from, to Status, at time.Time) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.RecordTransition(ctx, accountID, from, to, at); err != nil {
		p.log.WarnContext(ctx, "failed to record status transition",
			logger.AccountID(accountID), logger.Error(err))
	}
}

func (p *Processor) markFailed(ctx context.Context, eventID string, cause error) {
	if err := p.ledger.MarkFailed(ctx, eventID, cause.Error(), p.clock.Now()); err != nil {
		p.log.ErrorContext(ctx, "failed to mark event failed",
			logger.EventID(eventID), logger.Error(err))
	}
}

// isRejectable reports whether the failure is permanent: redelivering the
// same payload can never succeed, so the provider must not retry.
func isRejectable(err error) bool {
	return errors.Is(err, ErrInvalidEvent) ||
		errors.Is(err, ErrMissingAccountRef) ||
		errors.Is(err, ErrUnknownEventType) ||
		errors.Is(err, ErrAccountNotFound)
}

// lockKeyForEvent serializes all mutations for one billing customer. Events
// with no customer reference share a single low-traffic fallback key.
func lockKeyForEvent(ev BillingEvent) string {
	if ev.CustomerID != "" {
		return customerLockKey(ev.CustomerID)
	}
	return "billing:events:global"
}

func customerLockKey(customerID string) string {
	return "billing:customer:" + customerID
}
