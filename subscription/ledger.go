package subscription

import (
	"context"
	"time"
)

// ProcessingStatus is the lifecycle state of a webhook event ledger record.
type ProcessingStatus string

const (
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
	ProcessingStatusIgnored    ProcessingStatus = "ignored"
)

// WebhookEventRecord is the audit and idempotency ledger entry for one
// billing event. Records are created on first sight and updated on
// completion; they are never deleted in normal operation.
type WebhookEventRecord struct {
	EventID      string
	EventType    string
	Status       ProcessingStatus
	ReceivedAt   time.Time
	CompletedAt  *time.Time
	ErrorMessage string
}

// InsertOutcome reports what InsertIfAbsent found for an event ID.
type InsertOutcome string

const (
	// OutcomeInserted means the caller owns processing of this event.
	// A previously failed record is re-opened and owned the same way.
	OutcomeInserted InsertOutcome = "inserted"

	// OutcomeAlreadyProcessing means a concurrent delivery holds the event;
	// the caller acknowledges and lets the original holder finish.
	OutcomeAlreadyProcessing InsertOutcome = "already_processing"

	// OutcomeAlreadyCompleted means the event was fully applied before;
	// redelivery is an idempotent no-op.
	OutcomeAlreadyCompleted InsertOutcome = "already_completed"
)

// EventLedger is the shared dedup and audit store for webhook events.
// It must be visible to all processing workers, not process-local, since the
// unique event_id constraint is what makes duplicate deliveries collapse to
// one effective application.
type EventLedger interface {
	// InsertIfAbsent records the event as processing if unseen. A unique
	// constraint on event ID resolves races between concurrent deliveries.
	InsertIfAbsent(ctx context.Context, eventID, eventType string, now time.Time) (InsertOutcome, error)

	MarkCompleted(ctx context.Context, eventID string, now time.Time) error
	MarkFailed(ctx context.Context, eventID, errorMessage string, now time.Time) error

	// MarkIgnored records an event of an unrecognized type: acknowledged,
	// audited, but never applied.
	MarkIgnored(ctx context.Context, eventID string, now time.Time) error

	// Get returns the ledger record for an event ID, for audit inspection.
	Get(ctx context.Context, eventID string) (WebhookEventRecord, error)

	// ReopenStale marks processing records received before the cutoff as
	// failed so a provider redelivery can claim them again. Returns the
	// number of reopened records.
	ReopenStale(ctx context.Context, cutoff time.Time, now time.Time) (int64, error)
}
