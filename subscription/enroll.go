package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/entitledhq/entitled/pkg/clock"
	"github.com/entitledhq/entitled/pkg/logger"
)

// EnrollmentConfig holds trial enrollment configuration.
type EnrollmentConfig struct {
	TrialDays int `env:"TRIAL_DAYS" envDefault:"7"`
}

// RiskSignalSource supplies abuse signals for an enrollment attempt.
// The fingerprint comes from the request layer; implementations resolve how
// many existing accounts share it and fetch recent transition history.
type RiskSignalSource interface {
	SignalsFor(ctx context.Context, accountID, deviceFingerprint string) (RiskSignals, error)
}

// Enrollment creates new trial accounts. The abuse scorer advises it: a
// block_new_trial assessment stops a new trial from being created, but the
// scorer never touches accounts that already exist.
type Enrollment struct {
	store   AccountStore
	signals RiskSignalSource
	trial   time.Duration
	clock   clock.Clock
	log     *slog.Logger
}

// EnrollmentOption configures optional enrollment collaborators.
type EnrollmentOption func(*Enrollment)

func WithRiskSignalSource(s RiskSignalSource) EnrollmentOption {
	return func(e *Enrollment) { e.signals = s }
}

func WithEnrollmentClock(c clock.Clock) EnrollmentOption {
	return func(e *Enrollment) { e.clock = c }
}

func WithEnrollmentLogger(log *slog.Logger) EnrollmentOption {
	return func(e *Enrollment) { e.log = log }
}

// NewEnrollment creates a trial enrollment service.
func NewEnrollment(cfg EnrollmentConfig, store AccountStore, opts ...EnrollmentOption) *Enrollment {
	if store == nil {
		panic("subscription: AccountStore is required")
	}

	days := cfg.TrialDays
	if days <= 0 {
		days = 7
	}

	e := &Enrollment{
		store: store,
		trial: time.Duration(days) * 24 * time.Hour,
		clock: clock.System(),
		log:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// StartTrial creates the account's subscription record with a fresh trial
// clock. Returns ErrTrialBlocked when the risk assessment says this signup
// is abusive, and ErrAccountExists when a record already exists (trials are
// granted once, never reset).
func (e *Enrollment) StartTrial(ctx context.Context, accountID, email, deviceFingerprint string) (AccountSubscription, error) {
	if accountID == "" {
		return AccountSubscription{}, fmt.Errorf("%w: account id is required", ErrInvalidEvent)
	}

	now := e.clock.Now()

	if e.signals != nil {
		sig, err := e.signals.SignalsFor(ctx, accountID, deviceFingerprint)
		if err != nil {
			// The scorer is advisory: signal lookup failure degrades to
			// allow rather than blocking legitimate signups.
			e.log.WarnContext(ctx, "risk signal lookup failed, allowing enrollment",
				logger.AccountID(accountID), logger.Error(err))
		} else {
			assessment := ScoreRisk(sig, now)
			if assessment.Action == ActionBlockNewTrial {
				e.log.WarnContext(ctx, "blocked new trial for high-risk signup",
					logger.AccountID(accountID),
					slog.Int("risk_score", assessment.Score))
				return AccountSubscription{}, ErrTrialBlocked
			}
			if assessment.Action == ActionWarn {
				e.log.InfoContext(ctx, "elevated-risk signup allowed",
					logger.AccountID(accountID),
					slog.Int("risk_score", assessment.Score))
			}
		}
	}

	acct := NewTrialAccount(accountID, email, now, e.trial)
	if err := e.store.Create(ctx, acct); err != nil {
		return AccountSubscription{}, err
	}

	return acct, nil
}
