package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/entitledhq/entitled/pkg/webhook"
	"github.com/entitledhq/entitled/subscription"
)

// maxWebhookBody caps webhook payload reads; billing events are small.
const maxWebhookBody = 1 << 20

// WebhookProcessor is the processing contract the webhook endpoint needs.
type WebhookProcessor interface {
	Handle(ctx context.Context, payload []byte, sig webhook.SignatureHeaders) subscription.Outcome
}

// handleBillingWebhook answers the billing provider. 2xx is sent only after
// durable acceptance: the event is deduplicated and either applied or owned
// by another in-flight delivery. 4xx tells the provider a redelivery can
// never succeed; 5xx requests a retry.
func handleBillingWebhook(processor WebhookProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			respondError(w, http.StatusBadRequest, "unreadable payload")
			return
		}

		sig, err := webhook.ExtractSignatureHeaders(r.Header)
		if err != nil {
			respondError(w, http.StatusBadRequest, "missing signature headers")
			return
		}

		outcome := processor.Handle(r.Context(), payload, sig)
		switch {
		case outcome.Accepted:
			respondJSON(w, http.StatusOK, map[string]bool{"received": true})
		case outcome.Retryable:
			respondError(w, http.StatusServiceUnavailable, "temporarily unable to process event")
		default:
			respondError(w, http.StatusBadRequest, "event rejected")
		}
	}
}
