package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/entitledhq/entitled/pkg/fingerprint"
	"github.com/entitledhq/entitled/subscription"
)

type enrollRequest struct {
	Email string `json:"email"`
}

type enrollResponse struct {
	AccountID string              `json:"account_id"`
	Status    subscription.Status `json:"status"`
	TrialEnd  *time.Time          `json:"trial_end"`
}

// handleStartTrial creates the caller's trial subscription record. The
// device fingerprint computed by the middleware feeds the abuse scorer,
// which can refuse new trials for high-risk signups.
func handleStartTrial(enrollment *subscription.Enrollment, resolve AccountIDResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := resolve(r)
		if accountID == "" {
			respondError(w, http.StatusUnauthorized, "account identity required")
			return
		}

		var req enrollRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		fp := fingerprint.FromContext(r.Context())

		acct, err := enrollment.StartTrial(r.Context(), accountID, req.Email, fp)
		switch {
		case err == nil:
			respondJSON(w, http.StatusCreated, enrollResponse{
				AccountID: acct.AccountID,
				Status:    acct.Status,
				TrialEnd:  acct.TrialEnd,
			})
		case errors.Is(err, subscription.ErrAccountExists):
			respondError(w, http.StatusConflict, "subscription record already exists")
		case errors.Is(err, subscription.ErrTrialBlocked):
			respondError(w, http.StatusForbidden, "trial not available for this account")
		case errors.Is(err, subscription.ErrInvalidEvent):
			respondError(w, http.StatusBadRequest, "invalid enrollment request")
		default:
			respondError(w, http.StatusServiceUnavailable, "unable to start trial")
		}
	}
}
