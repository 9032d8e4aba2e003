package subscription

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the closed set of billing event types the processor applies.
// Types outside this set are acknowledged and recorded as ignored, never
// silently dropped.
type EventType string

const (
	EventCheckoutCompleted    EventType = "checkout.completed"
	EventSubscriptionCreated  EventType = "subscription.created"
	EventSubscriptionUpdated  EventType = "subscription.updated"
	EventSubscriptionDeleted  EventType = "subscription.deleted"
	EventInvoiceFinalized     EventType = "invoice.finalized"
	EventInvoicePaid          EventType = "invoice.paid"
	EventInvoicePaymentFailed EventType = "invoice.payment_failed"
)

// Known reports whether the event type participates in state transitions.
func (t EventType) Known() bool {
	switch t {
	case EventCheckoutCompleted,
		EventSubscriptionCreated,
		EventSubscriptionUpdated,
		EventSubscriptionDeleted,
		EventInvoiceFinalized,
		EventInvoicePaid,
		EventInvoicePaymentFailed:
		return true
	}
	return false
}

// BillingEvent is the normalized form of a billing provider webhook payload.
// AccountID is present on checkout events (carried in checkout metadata);
// every other event is resolved through CustomerID.
type BillingEvent struct {
	ID                string     `json:"id"`
	Type              EventType  `json:"type"`
	AccountID         string     `json:"account_id,omitempty"`
	CustomerID        string     `json:"customer_id,omitempty"`
	SubscriptionID    string     `json:"subscription_id,omitempty"`
	ProviderStatus    string     `json:"provider_status,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end,omitempty"`
	PeriodStart       *time.Time `json:"period_start,omitempty"`
	PeriodEnd         *time.Time `json:"period_end,omitempty"`
}

// ParseBillingEvent decodes and validates a raw webhook payload.
// An unknown event type is not a parse error; callers check Type.Known().
func ParseBillingEvent(payload []byte) (BillingEvent, error) {
	var ev BillingEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return BillingEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	if ev.ID == "" {
		return BillingEvent{}, fmt.Errorf("%w: event id is required", ErrInvalidEvent)
	}
	if ev.Type == "" {
		return BillingEvent{}, fmt.Errorf("%w: event type is required", ErrInvalidEvent)
	}

	return ev, nil
}
