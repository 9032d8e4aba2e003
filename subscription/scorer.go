package subscription

import (
	"time"
)

// Risk score thresholds and weights, tuned against observed cancel/reactivate
// farming patterns.
const (
	riskWarnThreshold  = 50
	riskBlockThreshold = 100

	cycleWindow        = 30 * 24 * time.Hour
	maxBenignCycles    = 2
	rapidReactivation  = 60 * time.Second
	weightExcessCycles = 30
	weightRapidCycle   = 25
	weightSharedCard   = 50
	sharedCardAccounts = 3
)

// RiskAction is the advisory outcome of a risk assessment. It gates only the
// creation of new trials; an existing paid entitlement is never revoked by
// the scorer.
type RiskAction string

const (
	ActionAllow         RiskAction = "allow"
	ActionWarn          RiskAction = "warn"
	ActionBlockNewTrial RiskAction = "block_new_trial"
)

// TransitionRecord is one observed status change, used as scoring input.
type TransitionRecord struct {
	From Status
	To   Status
	At   time.Time
}

// RiskSignals is the bounded recent history the scorer evaluates.
// FingerprintAccounts is the number of accounts sharing this account's
// payment fingerprint, supplied by the fingerprint layer.
type RiskSignals struct {
	Transitions         []TransitionRecord
	FingerprintAccounts int
}

// RiskAssessment is the scorer's advisory output.
type RiskAssessment struct {
	Score   int        `json:"score"`
	Action  RiskAction `json:"action"`
	Signals []string   `json:"signals,omitempty"`
}

// ScoreRisk evaluates abuse signals over an account's recent transition
// history. It is stateless and pure; callers supply the history and the
// current time.
//
// Scored behaviors:
//   - more cancel-to-reactivate cycles inside the rolling window than a
//     legitimate change of mind produces
//   - reactivation within seconds of cancellation, repeatedly, which
//     indicates automation
//   - several accounts sharing one payment fingerprint
func ScoreRisk(sig RiskSignals, now time.Time) RiskAssessment {
	var (
		score   int
		signals []string
	)

	cycles, rapid := countReactivationCycles(sig.Transitions, now)

	if cycles > maxBenignCycles {
		score += (cycles - maxBenignCycles) * weightExcessCycles
		signals = append(signals, "excessive_cancel_reactivate_cycles")
	}

	if rapid >= 2 {
		score += rapid * weightRapidCycle
		signals = append(signals, "rapid_reactivation")
	}

	if sig.FingerprintAccounts >= sharedCardAccounts {
		score += weightSharedCard
		signals = append(signals, "shared_payment_fingerprint")
	}

	action := ActionAllow
	switch {
	case score >= riskBlockThreshold:
		action = ActionBlockNewTrial
	case score >= riskWarnThreshold:
		action = ActionWarn
	}

	return RiskAssessment{Score: score, Action: action, Signals: signals}
}

// countReactivationCycles walks the history oldest-first and counts
// cancel-then-reactivate pairs inside the rolling window, plus how many of
// those reactivations happened within seconds of the cancellation.
func countReactivationCycles(history []TransitionRecord, now time.Time) (cycles, rapid int) {
	windowStart := now.Add(-cycleWindow)

	var canceledAt *time.Time
	for i := len(history) - 1; i >= 0; i-- { // history arrives newest first
		tr := history[i]
		if tr.At.Before(windowStart) {
			continue
		}

		switch {
		case tr.To == StatusCanceled:
			at := tr.At
			canceledAt = &at

		case tr.From == StatusCanceled && tr.To == StatusActive:
			if canceledAt == nil {
				continue
			}
			cycles++
			if tr.At.Sub(*canceledAt) <= rapidReactivation {
				rapid++
			}
			canceledAt = nil
		}
	}

	return cycles, rapid
}
