package webhook_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entitledhq/entitled/pkg/webhook"
)

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	now := time.Now()
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	headers, err := webhook.SignPayload("whsec_test", payload, now)
	require.NoError(t, err)
	assert.NotEmpty(t, headers.Signature)
	assert.NotEmpty(t, headers.EventID)

	err = webhook.VerifySignature("whsec_test", payload, headers, now, 5*time.Minute)
	assert.NoError(t, err)
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	t.Parallel()

	now := time.Now()
	payload := []byte(`{"id":"evt_1"}`)

	headers, err := webhook.SignPayload("whsec_test", payload, now)
	require.NoError(t, err)

	err = webhook.VerifySignature("whsec_other", payload, headers, now, 5*time.Minute)
	assert.ErrorIs(t, err, webhook.ErrInvalidSignature)
	assert.True(t, webhook.IsVerificationError(err))
}

func TestVerifySignature_TamperedPayload(t *testing.T) {
	t.Parallel()

	now := time.Now()
	headers, err := webhook.SignPayload("whsec_test", []byte(`{"id":"evt_1"}`), now)
	require.NoError(t, err)

	err = webhook.VerifySignature("whsec_test", []byte(`{"id":"evt_2"}`), headers, now, 5*time.Minute)
	assert.ErrorIs(t, err, webhook.ErrInvalidSignature)
}

func TestVerifySignature_StaleTimestamp(t *testing.T) {
	t.Parallel()

	signedAt := time.Now().Add(-10 * time.Minute)
	payload := []byte(`{"id":"evt_1"}`)

	headers, err := webhook.SignPayload("whsec_test", payload, signedAt)
	require.NoError(t, err)

	err = webhook.VerifySignature("whsec_test", payload, headers, time.Now(), 5*time.Minute)
	assert.ErrorIs(t, err, webhook.ErrStaleTimestamp)
}

func TestVerifySignature_FutureTimestamp(t *testing.T) {
	t.Parallel()

	now := time.Now()
	payload := []byte(`{"id":"evt_1"}`)

	headers, err := webhook.SignPayload("whsec_test", payload, now.Add(5*time.Minute))
	require.NoError(t, err)

	err = webhook.VerifySignature("whsec_test", payload, headers, now, 10*time.Minute)
	assert.ErrorIs(t, err, webhook.ErrStaleTimestamp)
}

func TestExtractSignatureHeaders(t *testing.T) {
	t.Parallel()

	t.Run("round trip through http headers", func(t *testing.T) {
		t.Parallel()

		signed, err := webhook.SignPayload("whsec_test", []byte(`{}`), time.Now())
		require.NoError(t, err)

		h := http.Header{}
		signed.Apply(h)

		got, err := webhook.ExtractSignatureHeaders(h)
		require.NoError(t, err)
		assert.Equal(t, signed, got)
	})

	t.Run("missing signature header", func(t *testing.T) {
		t.Parallel()

		h := http.Header{}
		h.Set(webhook.HeaderTimestamp, "1700000000")

		_, err := webhook.ExtractSignatureHeaders(h)
		assert.ErrorIs(t, err, webhook.ErrMissingSignature)
	})

	t.Run("malformed timestamp", func(t *testing.T) {
		t.Parallel()

		h := http.Header{}
		h.Set(webhook.HeaderSignature, "deadbeef")
		h.Set(webhook.HeaderTimestamp, "not-a-number")

		_, err := webhook.ExtractSignatureHeaders(h)
		assert.ErrorIs(t, err, webhook.ErrMissingSignature)
	})
}
