package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/entitledhq/entitled/pkg/pg"
	"github.com/entitledhq/entitled/subscription"
)

// EventLedger is the Postgres-backed subscription.EventLedger. The unique
// constraint on event_id is what collapses duplicate deliveries racing
// across workers: exactly one INSERT wins, everyone else reads the existing
// row's status.
type EventLedger struct {
	pool *pgxpool.Pool
}

// NewEventLedger creates a Postgres event ledger.
func NewEventLedger(pool *pgxpool.Pool) *EventLedger {
	if pool == nil {
		panic("pgstore: pool is required")
	}
	return &EventLedger{pool: pool}
}

// InsertIfAbsent implements subscription.EventLedger.
func (l *EventLedger) InsertIfAbsent(ctx context.Context, eventID, eventType string, now time.Time) (subscription.InsertOutcome, error) {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO webhook_events (event_id, event_type, status, received_at)
		VALUES ($1, $2, $3, $4)`,
		eventID, eventType, string(subscription.ProcessingStatusProcessing), now)
	if err == nil {
		return subscription.OutcomeInserted, nil
	}
	if !pg.IsDuplicateKeyError(err) {
		return "", classify(err, "insert webhook event")
	}

	// The event exists. A failed record is reclaimed atomically so exactly
	// one retry delivery wins it.
	tag, err := l.pool.Exec(ctx, `
		UPDATE webhook_events
		SET status = $2, received_at = $3, completed_at = NULL, error_message = NULL
		WHERE event_id = $1 AND status = $4`,
		eventID, string(subscription.ProcessingStatusProcessing), now,
		string(subscription.ProcessingStatusFailed))
	if err != nil {
		return "", classify(err, "reclaim failed webhook event")
	}
	if tag.RowsAffected() == 1 {
		return subscription.OutcomeInserted, nil
	}

	var status string
	err = l.pool.QueryRow(ctx,
		`SELECT status FROM webhook_events WHERE event_id = $1`, eventID).Scan(&status)
	if err != nil {
		return "", classify(err, "read webhook event status")
	}

	if subscription.ProcessingStatus(status) == subscription.ProcessingStatusProcessing {
		return subscription.OutcomeAlreadyProcessing, nil
	}
	return subscription.OutcomeAlreadyCompleted, nil
}

// MarkCompleted implements subscription.EventLedger.
func (l *EventLedger) MarkCompleted(ctx context.Context, eventID string, now time.Time) error {
	return l.finish(ctx, eventID, subscription.ProcessingStatusCompleted, "", now)
}

// MarkFailed implements subscription.EventLedger.
func (l *EventLedger) MarkFailed(ctx context.Context, eventID, errorMessage string, now time.Time) error {
	return l.finish(ctx, eventID, subscription.ProcessingStatusFailed, errorMessage, now)
}

// MarkIgnored implements subscription.EventLedger.
func (l *EventLedger) MarkIgnored(ctx context.Context, eventID string, now time.Time) error {
	return l.finish(ctx, eventID, subscription.ProcessingStatusIgnored, "", now)
}

func (l *EventLedger) finish(ctx context.Context, eventID string, status subscription.ProcessingStatus, errorMessage string, now time.Time) error {
	tag, err := l.pool.Exec(ctx, `
		UPDATE webhook_events
		SET status = $2, error_message = NULLIF($3, ''), completed_at = $4
		WHERE event_id = $1`,
		eventID, string(status), errorMessage, now)
	if err != nil {
		return classify(err, "finish webhook event")
	}
	if tag.RowsAffected() == 0 {
		return subscription.ErrEventNotFound
	}
	return nil
}

// Get implements subscription.EventLedger.
func (l *EventLedger) Get(ctx context.Context, eventID string) (subscription.WebhookEventRecord, error) {
	var (
		rec          subscription.WebhookEventRecord
		status       string
		errorMessage *string
	)

	err := l.pool.QueryRow(ctx, `
		SELECT event_id, event_type, status, received_at, completed_at, error_message
		FROM webhook_events WHERE event_id = $1`, eventID).
		Scan(&rec.EventID, &rec.EventType, &status, &rec.ReceivedAt, &rec.CompletedAt, &errorMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return subscription.WebhookEventRecord{}, subscription.ErrEventNotFound
		}
		return subscription.WebhookEventRecord{}, classify(err, "read webhook event")
	}

	rec.Status = subscription.ProcessingStatus(status)
	if errorMessage != nil {
		rec.ErrorMessage = *errorMessage
	}
	return rec, nil
}

// ReopenStale implements subscription.EventLedger.
func (l *EventLedger) ReopenStale(ctx context.Context, cutoff time.Time, now time.Time) (int64, error) {
	tag, err := l.pool.Exec(ctx, `
		UPDATE webhook_events
		SET status = $1, error_message = 'processing timed out', completed_at = $2
		WHERE status = $3 AND received_at < $4`,
		string(subscription.ProcessingStatusFailed), now,
		string(subscription.ProcessingStatusProcessing), cutoff)
	if err != nil {
		return 0, classify(err, "reopen stale webhook events")
	}
	return tag.RowsAffected(), nil
}

var _ subscription.EventLedger = (*EventLedger)(nil)
