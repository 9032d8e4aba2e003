package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Standard header names for signed billing webhook deliveries.
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderEventID   = "X-Webhook-ID"
)

// SignatureHeaders carries the signature material extracted from an inbound
// webhook request. EventID doubles as the idempotency key for the event
// ledger when the payload itself omits one.
type SignatureHeaders struct {
	Signature string
	Timestamp int64
	EventID   string
}

// Apply sets the signature headers on an outbound request. Used by tests and
// the local delivery simulator.
func (s SignatureHeaders) Apply(h http.Header) {
	h.Set(HeaderSignature, s.Signature)
	h.Set(HeaderTimestamp, strconv.FormatInt(s.Timestamp, 10))
	h.Set(HeaderEventID, s.EventID)
}

// SignPayload creates an HMAC-SHA256 signature over timestamp + "." + payload.
// Timestamp binding prevents replay of captured deliveries.
func SignPayload(secret string, payload []byte, now time.Time) (SignatureHeaders, error) {
	if secret == "" {
		return SignatureHeaders{}, fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if len(payload) == 0 {
		return SignatureHeaders{}, fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}

	timestamp := now.Unix()
	return SignatureHeaders{
		Signature: computeSignature(secret, timestamp, payload),
		Timestamp: timestamp,
		EventID:   uuid.New().String(),
	}, nil
}

// VerifySignature validates webhook authenticity. The timestamp must fall
// within maxAge of now (with one minute of allowed clock skew ahead of now),
// and the signature comparison is constant-time.
func VerifySignature(secret string, payload []byte, headers SignatureHeaders, now time.Time, maxAge time.Duration) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}
	if headers.Signature == "" {
		return fmt.Errorf("%w: signature is missing", ErrMissingSignature)
	}

	if maxAge > 0 {
		age := now.Sub(time.Unix(headers.Timestamp, 0))
		if age > maxAge {
			return fmt.Errorf("%w: delivery is %v old", ErrStaleTimestamp, age)
		}
		if age < -1*time.Minute {
			return fmt.Errorf("%w: timestamp is in the future", ErrStaleTimestamp)
		}
	}

	expected := computeSignature(secret, headers.Timestamp, payload)
	if !hmac.Equal([]byte(expected), []byte(headers.Signature)) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}

	return nil
}

// ExtractSignatureHeaders reads signature material from inbound HTTP headers.
func ExtractSignatureHeaders(h http.Header) (SignatureHeaders, error) {
	sig := SignatureHeaders{
		Signature: h.Get(HeaderSignature),
		EventID:   h.Get(HeaderEventID),
	}

	if raw := h.Get(HeaderTimestamp); raw != "" {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return SignatureHeaders{}, fmt.Errorf("%w: invalid timestamp format", ErrMissingSignature)
		}
		sig.Timestamp = ts
	}

	if sig.Signature == "" || sig.Timestamp == 0 {
		return SignatureHeaders{}, fmt.Errorf("%w: required signature headers not present", ErrMissingSignature)
	}

	return sig, nil
}

func computeSignature(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	return hex.EncodeToString(mac.Sum(nil))
}
