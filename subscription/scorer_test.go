package subscription_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/entitledhq/entitled/subscription"
)

// cycleHistory builds n cancel-then-reactivate cycles ending at testNow,
// newest first, with the given gap between cancellation and reactivation.
func cycleHistory(n int, gap time.Duration) []subscription.TransitionRecord {
	var records []subscription.TransitionRecord
	at := testNow
	for i := 0; i < n; i++ {
		records = append(records,
			subscription.TransitionRecord{From: subscription.StatusCanceled, To: subscription.StatusActive, At: at},
			subscription.TransitionRecord{From: subscription.StatusActive, To: subscription.StatusCanceled, At: at.Add(-gap)},
		)
		at = at.Add(-48 * time.Hour)
	}
	return records
}

func TestScoreRisk(t *testing.T) {
	t.Parallel()

	t.Run("clean history allows", func(t *testing.T) {
		t.Parallel()

		got := subscription.ScoreRisk(subscription.RiskSignals{
			Transitions: []subscription.TransitionRecord{
				{From: subscription.StatusTrial, To: subscription.StatusActive, At: testNow.Add(-10 * 24 * time.Hour)},
			},
		}, testNow)

		assert.Equal(t, 0, got.Score)
		assert.Equal(t, subscription.ActionAllow, got.Action)
		assert.Empty(t, got.Signals)
	})

	t.Run("one change of mind allows", func(t *testing.T) {
		t.Parallel()

		got := subscription.ScoreRisk(subscription.RiskSignals{
			Transitions: cycleHistory(2, 6*time.Hour),
		}, testNow)

		assert.Equal(t, subscription.ActionAllow, got.Action)
	})

	t.Run("excessive cycling warns", func(t *testing.T) {
		t.Parallel()

		got := subscription.ScoreRisk(subscription.RiskSignals{
			Transitions: cycleHistory(4, 6*time.Hour),
		}, testNow)

		assert.GreaterOrEqual(t, got.Score, 50)
		assert.Equal(t, subscription.ActionWarn, got.Action)
		assert.Contains(t, got.Signals, "excessive_cancel_reactivate_cycles")
	})

	t.Run("rapid automated cycling blocks new trials", func(t *testing.T) {
		t.Parallel()

		got := subscription.ScoreRisk(subscription.RiskSignals{
			Transitions: cycleHistory(4, 10*time.Second),
		}, testNow)

		assert.GreaterOrEqual(t, got.Score, 100)
		assert.Equal(t, subscription.ActionBlockNewTrial, got.Action)
		assert.Contains(t, got.Signals, "rapid_reactivation")
	})

	t.Run("shared payment fingerprint raises the score", func(t *testing.T) {
		t.Parallel()

		got := subscription.ScoreRisk(subscription.RiskSignals{
			FingerprintAccounts: 3,
		}, testNow)

		assert.Equal(t, 50, got.Score)
		assert.Equal(t, subscription.ActionWarn, got.Action)
		assert.Contains(t, got.Signals, "shared_payment_fingerprint")
	})

	t.Run("combined signals block", func(t *testing.T) {
		t.Parallel()

		got := subscription.ScoreRisk(subscription.RiskSignals{
			Transitions:         cycleHistory(4, 6*time.Hour),
			FingerprintAccounts: 4,
		}, testNow)

		assert.Equal(t, subscription.ActionBlockNewTrial, got.Action)
	})

	t.Run("cycles outside the rolling window do not count", func(t *testing.T) {
		t.Parallel()

		var old []subscription.TransitionRecord
		for _, tr := range cycleHistory(6, 6*time.Hour) {
			tr.At = tr.At.Add(-60 * 24 * time.Hour)
			old = append(old, tr)
		}

		got := subscription.ScoreRisk(subscription.RiskSignals{Transitions: old}, testNow)
		assert.Equal(t, 0, got.Score)
		assert.Equal(t, subscription.ActionAllow, got.Action)
	})
}
