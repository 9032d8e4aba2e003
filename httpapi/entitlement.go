package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/entitledhq/entitled/subscription"
)

// AccountIDResolver extracts the caller's account ID from a request. The
// authentication layer in front of this API decides what that means (session,
// API key, JWT); the gate only needs the resulting identifier.
type AccountIDResolver func(r *http.Request) string

// HeaderAccountResolver reads the account ID from a trusted proxy header.
// Suitable behind an authenticating gateway; do not expose it directly.
func HeaderAccountResolver(header string) AccountIDResolver {
	return func(r *http.Request) string {
		return r.Header.Get(header)
	}
}

type denyResponse struct {
	Allowed    bool                `json:"allowed"`
	Status     subscription.Status `json:"status,omitempty"`
	Reason     subscription.Reason `json:"reason"`
	UpgradeURL string              `json:"upgrade_url,omitempty"`
}

// RequireSubscription is the request-path access gate middleware. Denials
// are structured so clients can route to remediation: payment-related
// reasons carry the upgrade URL, degraded-mode denials carry Retry-After.
func RequireSubscription(gate *subscription.Gate, resolve AccountIDResolver, upgradeURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID := resolve(r)
			if accountID == "" {
				respondError(w, http.StatusUnauthorized, "account identity required")
				return
			}

			verdict := gate.Check(r.Context(), accountID)
			if verdict.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			writeDenial(w, verdict, upgradeURL)
		})
	}
}

func writeDenial(w http.ResponseWriter, verdict subscription.Verdict, upgradeURL string) {
	if verdict.Reason == subscription.ReasonUnavailable {
		if verdict.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(verdict.RetryAfter/time.Second)))
		}
		respondError(w, http.StatusServiceUnavailable, "subscription check temporarily unavailable")
		return
	}

	respondJSON(w, http.StatusPaymentRequired, denyResponse{
		Allowed:    false,
		Status:     verdict.Status,
		Reason:     verdict.Reason,
		UpgradeURL: upgradeURL,
	})
}

type statusResponse struct {
	AccountID          string              `json:"account_id"`
	Status             subscription.Status `json:"status"`
	Allowed            bool                `json:"allowed"`
	Reason             subscription.Reason `json:"reason"`
	TrialDaysRemaining int                 `json:"trial_days_remaining"`
	TrialEnd           *time.Time          `json:"trial_end,omitempty"`
	SubscriptionEnd    *time.Time          `json:"subscription_end,omitempty"`
	IsAdmin            bool                `json:"is_admin"`
}

// handleSubscriptionStatus reports the caller's full computed subscription
// state for dashboards and billing pages.
func handleSubscriptionStatus(gate *subscription.Gate, resolve AccountIDResolver, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := resolve(r)
		if accountID == "" {
			respondError(w, http.StatusUnauthorized, "account identity required")
			return
		}

		acct, verdict, err := gate.Verify(r.Context(), accountID)
		if err != nil {
			if errors.Is(err, subscription.ErrAccountNotFound) {
				respondError(w, http.StatusNotFound, "no subscription record")
				return
			}
			respondError(w, http.StatusServiceUnavailable, "subscription status unavailable")
			return
		}

		respondJSON(w, http.StatusOK, statusResponse{
			AccountID:          acct.AccountID,
			Status:             verdict.Status,
			Allowed:            verdict.Allowed,
			Reason:             verdict.Reason,
			TrialDaysRemaining: acct.TrialDaysRemainingAt(now()),
			TrialEnd:           acct.TrialEnd,
			SubscriptionEnd:    acct.SubscriptionEnd,
			IsAdmin:            acct.IsAdmin,
		})
	}
}

type verifyResponse struct {
	Allowed bool                `json:"allowed"`
	Status  subscription.Status `json:"status"`
	Reason  subscription.Reason `json:"reason"`
}

// handleSubscriptionVerify synchronously re-reads the record. Clients call
// it right after returning from checkout instead of polling on a timer.
func handleSubscriptionVerify(gate *subscription.Gate, resolve AccountIDResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := resolve(r)
		if accountID == "" {
			respondError(w, http.StatusUnauthorized, "account identity required")
			return
		}

		_, verdict, err := gate.Verify(r.Context(), accountID)
		if err != nil {
			if errors.Is(err, subscription.ErrAccountNotFound) {
				respondError(w, http.StatusNotFound, "no subscription record")
				return
			}
			respondError(w, http.StatusServiceUnavailable, "subscription status unavailable")
			return
		}

		respondJSON(w, http.StatusOK, verifyResponse{
			Allowed: verdict.Allowed,
			Status:  verdict.Status,
			Reason:  verdict.Reason,
		})
	}
}
