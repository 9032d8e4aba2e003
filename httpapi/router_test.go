package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entitledhq/entitled/httpapi"
	"github.com/entitledhq/entitled/pkg/keylock"
	"github.com/entitledhq/entitled/pkg/webhook"
	"github.com/entitledhq/entitled/subscription"
)

const testSecret = "whsec_test"

type fixture struct {
	router http.Handler
	store  *subscription.MemoryAccountStore
	ledger *subscription.MemoryEventLedger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := subscription.NewMemoryAccountStore()
	ledger := subscription.NewMemoryEventLedger()

	processor := subscription.NewProcessor(
		subscription.ProcessorConfig{WebhookSecret: testSecret, SignatureMaxAge: 5 * time.Minute},
		store, ledger, keylock.NewManager())
	gate := subscription.NewGate(subscription.GateConfig{}, store)
	enrollment := subscription.NewEnrollment(subscription.EnrollmentConfig{}, store)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Gate:       gate,
		Processor:  processor,
		Enrollment: enrollment,
		UpgradeURL: "https://example.com/upgrade",
	})

	return &fixture{router: router, store: store, ledger: ledger}
}

func (f *fixture) seedActive(t *testing.T, accountID string) {
	t.Helper()
	end := time.Now().UTC().Add(30 * 24 * time.Hour)
	require.NoError(t, f.store.Create(context.Background(), subscription.AccountSubscription{
		AccountID:             accountID,
		BillingCustomerID:     "cus_" + accountID,
		BillingSubscriptionID: "sub_" + accountID,
		Status:                subscription.StatusActive,
		SubscriptionEnd:       &end,
	}))
}

func (f *fixture) postWebhook(t *testing.T, ev subscription.BillingEvent, secret string) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	sig, err := webhook.SignPayload(secret, payload, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewReader(payload))
	sig.Apply(req.Header)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestBillingWebhookEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("valid event is acknowledged and applied", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.seedActive(t, "acc_1")

		rec := f.postWebhook(t, subscription.BillingEvent{
			ID:                "evt_1",
			Type:              subscription.EventSubscriptionUpdated,
			CustomerID:        "cus_acc_1",
			SubscriptionID:    "sub_acc_1",
			ProviderStatus:    "active",
			CancelAtPeriodEnd: true,
		}, testSecret)

		assert.Equal(t, http.StatusOK, rec.Code)

		acct, err := f.store.Get(context.Background(), "acc_1")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCanceled, acct.Status)
	})

	t.Run("bad signature is rejected without retry", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		rec := f.postWebhook(t, subscription.BillingEvent{
			ID:   "evt_1",
			Type: subscription.EventSubscriptionUpdated,
		}, "wrong-secret")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing signature headers are rejected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewReader([]byte(`{}`)))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate deliveries are both acknowledged", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.seedActive(t, "acc_1")

		ev := subscription.BillingEvent{
			ID:             "evt_dup",
			Type:           subscription.EventSubscriptionDeleted,
			CustomerID:     "cus_acc_1",
			SubscriptionID: "sub_acc_1",
		}

		assert.Equal(t, http.StatusOK, f.postWebhook(t, ev, testSecret).Code)
		assert.Equal(t, http.StatusOK, f.postWebhook(t, ev, testSecret).Code)

		acct, err := f.store.Get(context.Background(), "acc_1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), acct.Version)
	})
}

func TestRequireSubscription(t *testing.T) {
	t.Parallel()

	newGated := func(t *testing.T) (*fixture, http.Handler) {
		t.Helper()

		f := newFixture(t)
		gate := subscription.NewGate(subscription.GateConfig{}, f.store)

		mux := http.NewServeMux()
		mux.HandleFunc("/app", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		gated := httpapi.RequireSubscription(gate,
			httpapi.HeaderAccountResolver("X-Account-ID"),
			"https://example.com/upgrade")(mux)
		return f, gated
	}

	t.Run("entitled account passes through", func(t *testing.T) {
		t.Parallel()

		f, gated := newGated(t)
		f.seedActive(t, "acc_1")

		req := httptest.NewRequest(http.MethodGet, "/app", nil)
		req.Header.Set("X-Account-ID", "acc_1")
		rec := httptest.NewRecorder()
		gated.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("expired trial gets a structured denial", func(t *testing.T) {
		t.Parallel()

		f, gated := newGated(t)
		trialEnd := time.Now().UTC().Add(-24 * time.Hour)
		require.NoError(t, f.store.Create(context.Background(), subscription.AccountSubscription{
			AccountID: "acc_trial",
			Status:    subscription.StatusTrial,
			TrialEnd:  &trialEnd,
		}))

		req := httptest.NewRequest(http.MethodGet, "/app", nil)
		req.Header.Set("X-Account-ID", "acc_trial")
		rec := httptest.NewRecorder()
		gated.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusPaymentRequired, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["allowed"])
		assert.Equal(t, string(subscription.ReasonTrialExpired), body["reason"])
		assert.Equal(t, "https://example.com/upgrade", body["upgrade_url"])
	})

	t.Run("missing identity is unauthorized", func(t *testing.T) {
		t.Parallel()

		_, gated := newGated(t)
		req := httptest.NewRequest(http.MethodGet, "/app", nil)
		rec := httptest.NewRecorder()
		gated.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSubscriptionEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("trial enrollment then status", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		body := bytes.NewReader([]byte(`{"email":"user@example.com"}`))
		req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions/trial", body)
		req.Header.Set("X-Account-ID", "acc_new")
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/v1/subscriptions/status", nil)
		req.Header.Set("X-Account-ID", "acc_new")
		rec = httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var status map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, string(subscription.StatusTrial), status["status"])
		assert.Equal(t, true, status["allowed"])
		assert.Equal(t, float64(7), status["trial_days_remaining"])
	})

	t.Run("second enrollment conflicts", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		for i, want := range []int{http.StatusCreated, http.StatusConflict} {
			body := bytes.NewReader([]byte(`{"email":"user@example.com"}`))
			req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions/trial", body)
			req.Header.Set("X-Account-ID", "acc_1")
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)
			assert.Equal(t, want, rec.Code, "attempt %d", i)
		}
	})

	t.Run("verify reflects checkout immediately", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		trialEnd := time.Now().UTC().Add(-time.Hour)
		require.NoError(t, f.store.Create(context.Background(), subscription.AccountSubscription{
			AccountID: "acc_1",
			Status:    subscription.StatusTrial,
			TrialEnd:  &trialEnd,
		}))

		end := time.Now().UTC().Add(30 * 24 * time.Hour)
		rec := f.postWebhook(t, subscription.BillingEvent{
			ID:             "evt_checkout",
			Type:           subscription.EventCheckoutCompleted,
			AccountID:      "acc_1",
			CustomerID:     "cus_1",
			SubscriptionID: "sub_1",
			PeriodEnd:      &end,
		}, testSecret)
		require.Equal(t, http.StatusOK, rec.Code)

		req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions/verify", nil)
		req.Header.Set("X-Account-ID", "acc_1")
		verifyRec := httptest.NewRecorder()
		f.router.ServeHTTP(verifyRec, req)

		require.Equal(t, http.StatusOK, verifyRec.Code)

		var verdict map[string]any
		require.NoError(t, json.Unmarshal(verifyRec.Body.Bytes(), &verdict))
		assert.Equal(t, true, verdict["allowed"])
		assert.Equal(t, string(subscription.StatusActive), verdict["status"])
	})

	t.Run("status for unknown account is not found", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/v1/subscriptions/status", nil)
		req.Header.Set("X-Account-ID", "acc_ghost")
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALIVE", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
