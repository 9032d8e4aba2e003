package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/entitledhq/entitled/subscription"
)

// TransitionLog is the Postgres-backed subscription.TransitionRecorder.
// Rows feed the abuse risk scorer; they are append-only and pruned by
// retention policy outside this package.
type TransitionLog struct {
	pool *pgxpool.Pool
}

// NewTransitionLog creates a Postgres transition log.
func NewTransitionLog(pool *pgxpool.Pool) *TransitionLog {
	if pool == nil {
		panic("pgstore: pool is required")
	}
	return &TransitionLog{pool: pool}
}

// RecordTransition implements subscription.TransitionRecorder.
func (t *TransitionLog) RecordTransition(ctx context.Context, accountID string, from, to subscription.Status, at time.Time) error {
	_, err := t.pool.Exec(ctx, `
		INSERT INTO subscription_transitions (account_id, from_status, to_status, occurred_at)
		VALUES ($1, $2, $3, $4)`,
		accountID, string(from), string(to), at)
	if err != nil {
		return classify(err, "insert subscription transition")
	}
	return nil
}

// RecentTransitions implements subscription.TransitionRecorder.
func (t *TransitionLog) RecentTransitions(ctx context.Context, accountID string, limit int) ([]subscription.TransitionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := t.pool.Query(ctx, `
		SELECT from_status, to_status, occurred_at
		FROM subscription_transitions
		WHERE account_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, classify(err, "read subscription transitions")
	}
	defer rows.Close()

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (subscription.TransitionRecord, error) {
		var (
			rec      subscription.TransitionRecord
			from, to string
		)
		if err := row.Scan(&from, &to, &rec.At); err != nil {
			return subscription.TransitionRecord{}, err
		}
		rec.From = subscription.Status(from)
		rec.To = subscription.Status(to)
		return rec, nil
	})
	if err != nil {
		return nil, classify(err, "scan subscription transitions")
	}

	return records, nil
}

var _ subscription.TransitionRecorder = (*TransitionLog)(nil)
